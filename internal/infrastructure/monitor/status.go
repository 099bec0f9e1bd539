package monitor

import (
	"maps"
	"time"
)

type Status struct {
	Online    bool            `json:"online"`
	Services  map[string]bool `json:"services"`
	LastCheck time.Time       `json:"lastCheck"`
}

func (s Status) clone() Status {
	s.Services = maps.Clone(s.Services)
	return s
}
