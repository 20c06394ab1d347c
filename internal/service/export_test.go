package service

import "time"

func (s *AuthService) SetClock(now func() time.Time) { s.now = now }

func (s *AuthService) SetCodeGenerator(gen func(digits int) (string, error)) { s.generate = gen }

func (s *CatalogAdminService) SetClock(now func() time.Time) { s.now = now }
