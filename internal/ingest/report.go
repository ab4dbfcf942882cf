package ingest

import "github.com/jdholdren/learninghub/internal/hub"

// Outcome is what happened to a single submitted url: one of Added, Skipped
// or Failed.
type Outcome interface {
	outcome()
}

type (
	Added struct {
		URL      string
		Resource hub.Resource
	}

	Skipped struct {
		URL    string
		Reason string
	}

	Failed struct {
		URL string
		Err error
	}
)

func (Added) outcome()   {}
func (Skipped) outcome() {}
func (Failed) outcome()  {}

// Report holds the outcome of every url in a batch, in submission order.
type Report struct {
	Outcomes []Outcome
}

type Summary struct {
	Total   int
	Added   int
	Skipped int
	Failed  int
}

func (r Report) Summary() Summary {
	s := Summary{Total: len(r.Outcomes)}
	for _, o := range r.Outcomes {
		switch o.(type) {
		case Added:
			s.Added++
		case Skipped:
			s.Skipped++
		case Failed:
			s.Failed++
		}
	}

	return s
}

// Added returns the resources created by the batch.
func (r Report) Added() []hub.Resource {
	created := []hub.Resource{}
	for _, o := range r.Outcomes {
		if a, ok := o.(Added); ok {
			created = append(created, a.Resource)
		}
	}

	return created
}

func (r Report) Skipped() []Skipped {
	skipped := []Skipped{}
	for _, o := range r.Outcomes {
		if s, ok := o.(Skipped); ok {
			skipped = append(skipped, s)
		}
	}

	return skipped
}

func (r Report) Failed() []Failed {
	failed := []Failed{}
	for _, o := range r.Outcomes {
		if f, ok := o.(Failed); ok {
			failed = append(failed, f)
		}
	}

	return failed
}
