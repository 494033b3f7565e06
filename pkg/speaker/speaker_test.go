package speaker

import "testing"

func TestRegistryIdentify(t *testing.T) {
	t.Run("first chunk creates profile", func(t *testing.T) {
		r := NewRegistry()
		p, created := r.Identify([]float64{1, 0, 0, 0})
		if !created {
			t.Error("expected new profile")
		}
		if p.Label != "speaker-1" {
			t.Errorf("label=%q", p.Label)
		}
	})

	t.Run("similar signature binds to existing", func(t *testing.T) {
		r := NewRegistry()
		r.Identify([]float64{1, 0, 0, 0})
		p, created := r.Identify([]float64{0.95, 0.05, 0, 0})
		if created {
			t.Error("expected bind to existing profile")
		}
		if p.Label != "speaker-1" {
			t.Errorf("label=%q", p.Label)
		}
		if p.Samples != 2 {
			t.Errorf("samples=%d", p.Samples)
		}
	})

	t.Run("dissimilar signature creates new", func(t *testing.T) {
		r := NewRegistry()
		r.Identify([]float64{1, 0, 0, 0})
		p, created := r.Identify([]float64{0, 1, 0, 0})
		if !created {
			t.Error("expected new profile")
		}
		if p.Label != "speaker-2" {
			t.Errorf("label=%q", p.Label)
		}
	})

	t.Run("centroid is running average", func(t *testing.T) {
		r := NewRegistry()
		r.Identify([]float64{1, 0})
		p, _ := r.Identify([]float64{0.8, 0})
		if got := p.Centroid[0]; got != 0.9 {
			t.Errorf("centroid[0]=%v", got)
		}
	})

	t.Run("profile cap binds nearest", func(t *testing.T) {
		r := NewRegistry()
		r.maxProfiles = 1
		r.Identify([]float64{1, 0, 0, 0})
		_, created := r.Identify([]float64{0, 1, 0, 0})
		if created {
			t.Error("cap exceeded: expected bind to nearest")
		}
	})
}
