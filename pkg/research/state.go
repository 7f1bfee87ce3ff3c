package research

// Source is one retrieved document plus the outcome of credibility
// evaluation. Score stays nil until the evaluator has seen the source.
type Source struct {
	URL        string   `json:"url"`
	Content    string   `json:"content"`
	SourceType string   `json:"source_type"`
	Score      *float64 `json:"score,omitempty"`
	EvalError  string   `json:"eval_error,omitempty"`
}

// Scored reports whether the evaluator has assigned a score.
func (s *Source) Scored() bool { return s.Score != nil }

// State carries everything the pipeline accumulates while researching one
// topic. It lives for a single run and is discarded afterwards.
type State struct {
	Topic       string   `json:"topic"`
	Plan        []string `json:"plan"`
	CurrentStep int      `json:"current_step"`
	Sources     []Source `json:"sources"`
	Report      string   `json:"report,omitempty"`
	Status      string   `json:"status,omitempty"`
	Progress    float64  `json:"progress"`
}

func NewState(topic string) *State {
	return &State{
		Topic:   topic,
		Plan:    []string{},
		Sources: []Source{},
	}
}

// Clone returns a deep copy that stays valid while the pipeline keeps
// mutating the original. Used for progress snapshots.
func (s *State) Clone() State {
	out := *s
	out.Plan = append([]string(nil), s.Plan...)
	out.Sources = make([]Source, len(s.Sources))
	for i, src := range s.Sources {
		if src.Score != nil {
			v := *src.Score
			src.Score = &v
		}
		out.Sources[i] = src
	}
	return out
}
