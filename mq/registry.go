package mq

import "fmt"

// Factory builds a Consumer driver.
type Factory func() Consumer

var registry = map[string]Factory{}

// Register is called from each driver's init() or main() factory map.
func Register(name string, f Factory) {
	registry[name] = f
}

// NewConsumer returns a driver by name ("kafka", ...).
func NewConsumer(name string) (Consumer, error) {
	if f, ok := registry[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("mq: unsupported driver %q", name)
}
