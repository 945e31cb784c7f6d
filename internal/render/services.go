package render

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ResolveService looks up a service by its exact name.
// Returns ErrServiceNotFound when the platform has no match.
func (c *Client) ResolveService(ctx context.Context, name string) (Service, error) {
	const path = "/services"
	query := url.Values{
		"name":  {name},
		"limit": {"1"},
	}

	data, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return Service{}, err
	}

	var items []listServiceItem
	if err := decodeJSON(path, data, &items); err != nil {
		return Service{}, err
	}
	if len(items) == 0 {
		return Service{}, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}

	service := items[0].Service
	if err := service.validate(); err != nil {
		return Service{}, &DecodeError{Path: path, Body: string(data), Err: err}
	}
	return service, nil
}
