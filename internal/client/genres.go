package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

type Genre struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// GenreQuery filters and paginates GET /genre.
type GenreQuery struct {
	Page        int
	Limit       int
	Search      string
	OrderByName Order
}

func (q GenreQuery) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.OrderByName != "" {
		v.Set("orderByName", string(q.OrderByName))
	}
	return v
}

func (c *Client) ListGenres(ctx context.Context, q GenreQuery) (Page[Genre], error) {
	env, err := doJSON[[]Genre](ctx, c, http.MethodGet, "/genre", q.values(), nil)
	if err != nil {
		return Page[Genre]{}, err
	}
	return pageOf(env), nil
}

func (c *Client) GetGenre(ctx context.Context, id string) (Genre, error) {
	env, err := doJSON[Genre](ctx, c, http.MethodGet, "/genre/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return Genre{}, err
	}
	return env.Data, nil
}

func (c *Client) CreateGenre(ctx context.Context, name string) (Genre, error) {
	env, err := doJSON[Genre](ctx, c, http.MethodPost, "/genre", nil, map[string]string{"name": name})
	if err != nil {
		return Genre{}, err
	}
	return env.Data, nil
}

func (c *Client) UpdateGenre(ctx context.Context, id, name string) (Genre, error) {
	env, err := doJSON[Genre](ctx, c, http.MethodPatch, "/genre/"+url.PathEscape(id), nil, map[string]string{"name": name})
	if err != nil {
		return Genre{}, err
	}
	return env.Data, nil
}

func (c *Client) DeleteGenre(ctx context.Context, id string) error {
	_, err := doJSON[struct{}](ctx, c, http.MethodDelete, "/genre/"+url.PathEscape(id), nil, nil)
	return err
}
