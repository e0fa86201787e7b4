package journal

import (
	"encoding/json"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/example/kdash/internal/watch"
)

// Source is the read side the recorder fetches object bodies from, since
// change notifications carry keys only.
type Source interface {
	Get(kind, namespace, name string) (*unstructured.Unstructured, bool)
}

// Recorder subscribes to the synchronization engine and turns notifications
// into journal entries. Failed appends are logged and forgotten so a slow or
// broken journal never stalls event delivery.
type Recorder struct {
	log     logr.Logger
	source  Source
	journal *Journal
	now     func() time.Time
}

func NewRecorder(log logr.Logger, source Source, journal *Journal) *Recorder {
	return &Recorder{
		log:     log.WithName("journal"),
		source:  source,
		journal: journal,
		now:     time.Now,
	}
}

var _ watch.Listener = (*Recorder)(nil)

func (r *Recorder) OnAdded(kind string, key watch.Key) {
	r.snapshot(EventAdded, kind, key)
}

func (r *Recorder) OnModified(kind string, key watch.Key) {
	r.snapshot(EventModified, kind, key)
}

func (r *Recorder) OnDeleted(kind string, key watch.Key) {
	r.append(Entry{
		RecordedAt: r.now(),
		Kind:       kind,
		Event:      EventDeleted,
		Namespace:  key.Namespace,
		Name:       key.Name,
	})
}

func (r *Recorder) OnFullRefresh(kind string, resourceVersion string) {
	r.append(Entry{
		RecordedAt:      r.now(),
		Kind:            kind,
		Event:           EventRefresh,
		ResourceVersion: resourceVersion,
	})
}

func (r *Recorder) snapshot(event, kind string, key watch.Key) {
	obj, ok := r.source.Get(kind, key.Namespace, key.Name)
	if !ok {
		// The object can vanish between the notification and this lookup.
		r.log.V(1).Info("object gone before journaling", "kind", kind, "namespace", key.Namespace, "name", key.Name)
		return
	}
	data, err := json.Marshal(obj.Object)
	if err != nil {
		r.log.Error(err, "encode object snapshot", "kind", kind, "namespace", key.Namespace, "name", key.Name)
		return
	}
	r.append(Entry{
		RecordedAt:      r.now(),
		Kind:            kind,
		Event:           event,
		Namespace:       key.Namespace,
		Name:            key.Name,
		ResourceVersion: obj.GetResourceVersion(),
		Object:          data,
	})
}

func (r *Recorder) append(e Entry) {
	if err := r.journal.Append(e); err != nil {
		r.log.V(1).Info("journal entry skipped", "reason", err.Error())
	}
}
