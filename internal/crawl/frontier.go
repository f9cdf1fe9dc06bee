package crawl

// task is one URL queued for fetching at a BFS depth.
type task struct {
	url   string
	depth int
}

// frontier holds the next BFS level as two queues: contact-likely
// paths drain before generically discovered links at the same depth.
type frontier struct {
	priority   []task
	discovered []task
}

func (f *frontier) push(t task, prioritized bool) {
	if prioritized {
		f.priority = append(f.priority, t)
		return
	}
	f.discovered = append(f.discovered, t)
}

// drain returns the level in deterministic order and empties the frontier.
func (f *frontier) drain() []task {
	out := make([]task, 0, len(f.priority)+len(f.discovered))
	out = append(out, f.priority...)
	out = append(out, f.discovered...)
	f.priority = nil
	f.discovered = nil
	return out
}

func (f *frontier) empty() bool {
	return len(f.priority) == 0 && len(f.discovered) == 0
}
