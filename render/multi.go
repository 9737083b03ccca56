package render

import "github.com/pthm-cable/tendril/growth"

// Multi fans each sync out to several sinks in order. Nil entries are
// skipped.
type Multi []growth.RenderSink

// SyncPlant forwards the views to every sink.
func (m Multi) SyncPlant(plant growth.ID, views []growth.ParticleView) {
	for _, s := range m {
		if s != nil {
			s.SyncPlant(plant, views)
		}
	}
}
