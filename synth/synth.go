package synth

import "sync"

// Dataset is an opaque source of synthetic samples used when organic traffic
// is insufficient.
type Dataset interface {
	// Sample returns the next synthetic payload, or nil if the dataset is
	// exhausted or empty.
	Sample() map[string]interface{}
}

var _ Dataset = (*StaticDataset)(nil)

// StaticDataset cycles through a fixed set of payloads. It is the fallback
// used when no real synthetic generator is wired in.
type StaticDataset struct {
	Samples []map[string]interface{}

	mut  sync.Mutex
	next int
}

// NewStaticDataset returns a dataset cycling over the given payloads; when
// none are supplied a single placeholder payload is used.
func NewStaticDataset(samples []map[string]interface{}) *StaticDataset {
	if len(samples) == 0 {
		samples = []map[string]interface{}{
			{"synthetic": true},
		}
	}
	return &StaticDataset{Samples: samples}
}

func (d *StaticDataset) Sample() map[string]interface{} {
	d.mut.Lock()
	defer d.mut.Unlock()
	if len(d.Samples) == 0 {
		return nil
	}
	s := d.Samples[d.next]
	d.next = (d.next + 1) % len(d.Samples)
	return s
}
