package main

import (
	"github.com/MosandosSantos/cronos-sub000/internal/bootstrap"
	"github.com/MosandosSantos/cronos-sub000/internal/interfaces/http/handlers"
)

// healthCheckers lists the dependencies probed by /readyz.
func healthCheckers(c *bootstrap.Container) []handlers.HealthChecker {
	out := []handlers.HealthChecker{c.Conn, c.Pool}
	if c.Redis != nil {
		out = append(out, c.Redis)
	}
	return out
}
