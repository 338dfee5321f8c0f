package models

// Agency is a travel operator and its listing page.
type Agency struct {
	Name string
	URL  string
}

// Link is one route key and the page that lists its buses.
type Link struct {
	Key string
	URL string
}

// LinkSet is an insertion-ordered key to URL mapping. Putting an existing key
// replaces its URL but keeps its original position.
type LinkSet struct {
	links []Link
	index map[string]int
}

func NewLinkSet() *LinkSet {
	return &LinkSet{index: make(map[string]int)}
}

func (s *LinkSet) Put(key, url string) {
	if i, ok := s.index[key]; ok {
		s.links[i].URL = url
		return
	}
	s.index[key] = len(s.links)
	s.links = append(s.links, Link{Key: key, URL: url})
}

// Merge puts every link of other into s, in order.
func (s *LinkSet) Merge(other *LinkSet) {
	for _, l := range other.Links() {
		s.Put(l.Key, l.URL)
	}
}

func (s *LinkSet) Len() int {
	return len(s.links)
}

// Links returns a copy of the links in insertion order.
func (s *LinkSet) Links() []Link {
	out := make([]Link, len(s.links))
	copy(out, s.links)
	return out
}
