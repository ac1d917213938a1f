package pusher

func NewPushedSet(highWater, retained int) *PushedSet {
	if highWater <= 0 {
		highWater = HighWaterMark
	}
	if retained <= 0 || retained > highWater {
		retained = highWater / 2
	}

	return &PushedSet{
		members:   make(map[string]struct{}),
		highWater: highWater,
		retained:  retained,
	}
}

func (s *PushedSet) Has(id string) bool {
	if id == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, found := s.members[id]
	return found
}

// Add records one delivered item under all of its identities. Once more than
// highWater items are remembered, only the newest retained items are kept.
func (s *PushedSet) Add(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entry []string
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, found := s.members[id]; found {
			continue
		}
		s.members[id] = struct{}{}
		entry = append(entry, id)
	}
	if len(entry) == 0 {
		return
	}
	s.items = append(s.items, entry)

	if len(s.items) <= s.highWater {
		return
	}

	cut := len(s.items) - s.retained
	for _, forgotten := range s.items[:cut] {
		for _, id := range forgotten {
			delete(s.members, id)
		}
	}
	kept := make([][]string, s.retained, s.highWater+1)
	copy(kept, s.items[cut:])
	s.items = kept
}

// Len returns the number of remembered identities.
func (s *PushedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}

// Items returns the number of remembered items.
func (s *PushedSet) Items() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
