package server

// Server is a backend descriptor. URL is the identity within a pool.
//
// Weight is only consulted by weighted round robin; 0 means the server is
// never selected. Connections is only maintained by least-connections and
// random-choice, which increment it on selection and decrement it on release.
type Server struct {
	URL         string `json:"url" mapstructure:"url"`
	Active      bool   `json:"active" mapstructure:"active"`
	Weight      int    `json:"weight" mapstructure:"weight"`
	Connections int    `json:"connections" mapstructure:"connections"`
}

// New returns an active server with the given URL and weight.
func New(url string, weight int) *Server {
	return &Server{
		URL:    url,
		Active: true,
		Weight: weight,
	}
}

// Clone returns a copy of s that shares no state with it.
func (s *Server) Clone() *Server {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// IncrementConn increments the connection counter.
func (s *Server) IncrementConn() {
	s.Connections++
}

// DecrementConn decrements the connection counter without going below zero.
func (s *Server) DecrementConn() {
	if s.Connections > 0 {
		s.Connections--
	}
}

// FilterActive returns the active servers of list, preserving order.
func FilterActive(list []*Server) []*Server {
	active := make([]*Server, 0, len(list))

	for _, s := range list {
		if s.Active {
			active = append(active, s)
		}
	}

	return active
}

// Find returns the index of the first server with the given URL, or -1.
func Find(list []*Server, url string) int {
	for i, s := range list {
		if s.URL == url {
			return i
		}
	}
	return -1
}
