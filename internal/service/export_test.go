package service

import "time"

// SetClock replaces the time source used for timestamps.
func (s *CatalogService) SetClock(now func() time.Time) { s.now = now }
