package recordstore

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/fomet/fomet/internal/po"
)

// Reference serves the slow-changing lookup tables through the cache.
// Concurrent misses for the same key share one backend call.
type Reference struct {
	client *Client
	cache  *Cache
	group  singleflight.Group
}

// NewReference wires the reference loader.
func NewReference(client *Client, cache *Cache) *Reference {
	return &Reference{client: client, cache: cache}
}

// TariffOptions returns the unit/tariff/power selectors.
func (r *Reference) TariffOptions(ctx context.Context) (po.TariffOptions, error) {
	var out po.TariffOptions
	err := r.load(ctx, "tariff_options", &out, func(ctx context.Context) (any, error) {
		return r.client.TariffOptions(ctx)
	})
	return out, err
}

// TariffRows returns the tariff sheet.
func (r *Reference) TariffRows(ctx context.Context) ([]po.TariffRow, error) {
	var out []po.TariffRow
	err := r.load(ctx, "tariff_rows", &out, func(ctx context.Context) (any, error) {
		return r.client.TariffData(ctx)
	})
	return out, err
}

// MeterModels returns the meter catalogue.
func (r *Reference) MeterModels(ctx context.Context) ([]po.MeterModel, error) {
	var out []po.MeterModel
	err := r.load(ctx, "meter_models", &out, func(ctx context.Context) (any, error) {
		return r.client.MeterModels(ctx)
	})
	return out, err
}

// Refresh invalidates the cache and reloads every table.
func (r *Reference) Refresh(ctx context.Context) error {
	if err := r.cache.Bump(ctx); err != nil {
		return err
	}
	if _, err := r.TariffOptions(ctx); err != nil {
		return err
	}
	if _, err := r.TariffRows(ctx); err != nil {
		return err
	}
	_, err := r.MeterModels(ctx)
	return err
}

func (r *Reference) load(ctx context.Context, name string, dest any, loader func(context.Context) (any, error)) error {
	key, err := r.cache.BuildKey(ctx, name)
	if err != nil {
		return err
	}
	raw, err, _ := r.group.Do(key, func() (any, error) {
		var value any
		if err := r.cache.FetchJSON(ctx, key, &value, loader); err != nil {
			return nil, err
		}
		return value, nil
	})
	if err != nil {
		return err
	}
	return remarshal(raw, dest)
}
