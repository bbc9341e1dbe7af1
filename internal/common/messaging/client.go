package messaging

import (
	"errors"
)

// NopClient drops every message
type NopClient struct{}

func (NopClient) PublishJSON(exchange, routingKey string, data interface{}) error { return nil }

func (NopClient) Close() error { return nil }

// MultiClient publishes every message to all of its clients
type MultiClient []Client

func (m MultiClient) PublishJSON(exchange, routingKey string, data interface{}) error {
	var errs []error
	for _, c := range m {
		if err := c.PublishJSON(exchange, routingKey, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiClient) Close() error {
	var errs []error
	for _, c := range m {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
