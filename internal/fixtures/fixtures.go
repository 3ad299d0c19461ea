// Package fixtures loads seed data files shaped as a list of
// {model, pk, fields} objects into a store.
package fixtures

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"gopkg.in/yaml.v2"

	"myrestaurants/internal/adapters/auth"
	"myrestaurants/internal/app"
	"myrestaurants/internal/domain"
)

type Object struct {
	Model  string         `yaml:"model"`
	PK     int64          `yaml:"pk"`
	Fields map[string]any `yaml:"fields"`
}

// order lists models so that every foreign key points at an earlier stage.
// restaurants.dish carries no constraint, so restaurants may precede dishes.
var order = []string{
	domain.ModelUser,
	domain.ModelAddress,
	domain.ModelPrice,
	domain.ModelRestaurant,
	domain.ModelDish,
	domain.ModelReview,
}

func Parse(r io.Reader) ([]Object, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var objs []Object
	if err := yaml.Unmarshal(b, &objs); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	for i, o := range objs {
		objs[i].Model = strings.ToLower(o.Model)
		if o.PK <= 0 {
			return nil, fmt.Errorf("object %d (%s): pk must be positive", i, o.Model)
		}
	}
	return objs, nil
}

type Loader struct {
	store   domain.Store
	workers int64
}

func NewLoader(s domain.Store, workers int) *Loader {
	if workers < 1 {
		workers = 1
	}
	return &Loader{store: s, workers: int64(workers)}
}

func (l *Loader) LoadFiles(ctx context.Context, paths ...string) (int, error) {
	var all []Object
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return 0, err
		}
		objs, err := Parse(f)
		f.Close()
		if err != nil {
			return 0, fmt.Errorf("%s: %w", p, err)
		}
		all = append(all, objs...)
	}
	return l.Load(ctx, all)
}

// Load upserts objs model by model. Within a model, writes run
// concurrently up to the loader's worker count.
func (l *Loader) Load(ctx context.Context, objs []Object) (int, error) {
	stages := map[string][]Object{}
	for _, o := range objs {
		if stageOf(o.Model) < 0 {
			return 0, fmt.Errorf("unknown model %q", o.Model)
		}
		stages[o.Model] = append(stages[o.Model], o)
	}

	loaded := 0
	for _, model := range order {
		batch := stages[model]
		sort.Slice(batch, func(i, j int) bool { return batch[i].PK < batch[j].PK })
		if err := l.stage(ctx, batch); err != nil {
			return loaded, err
		}
		loaded += len(batch)
		if len(batch) > 0 {
			log.Info().Str("model", model).Int("objects", len(batch)).Msg("fixtures loaded")
		}
	}
	return loaded, nil
}

func (l *Loader) stage(ctx context.Context, batch []Object) error {
	sem := semaphore.NewWeighted(l.workers)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, o := range batch {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return err
		}
		wg.Add(1)
		go func(o Object) {
			defer wg.Done()
			defer sem.Release(1)
			if err := l.one(ctx, o); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("%s pk=%d: %w", o.Model, o.PK, err)
				}
				mu.Unlock()
			}
		}(o)
	}
	wg.Wait()
	return firstErr
}

func (l *Loader) one(ctx context.Context, o Object) error {
	switch o.Model {
	case domain.ModelUser:
		return l.user(ctx, o)
	case domain.ModelAddress:
		return upsert[domain.Address](ctx, l.store.Addresses(), o)
	case domain.ModelPrice:
		return upsert[domain.Price](ctx, l.store.Prices(), o)
	case domain.ModelDish:
		return upsert[domain.Dish](ctx, l.store.Dishes(), o)
	case domain.ModelRestaurant:
		return upsert[domain.Restaurant](ctx, l.store.Restaurants(), o)
	case domain.ModelReview:
		return upsert[domain.RestaurantReview](ctx, l.store.Reviews(), o)
	}
	return fmt.Errorf("unknown model %q", o.Model)
}

func upsert[T any, P domain.Entity[T]](ctx context.Context, coll domain.Collection[T], o Object) error {
	var rec T
	if err := app.DecodeFields(o.Fields, &rec); err != nil {
		return err
	}
	p := P(&rec)
	p.SetID(o.PK)
	p.Normalize(domain.Today())
	if err := p.Validate(); err != nil {
		return err
	}
	return coll.Upsert(ctx, rec)
}

// user accepts plain passwords and hashes them; bcrypt hashes are kept.
func (l *Loader) user(ctx context.Context, o Object) error {
	var u domain.User
	if err := app.DecodeFields(o.Fields, &u); err != nil {
		return err
	}
	u.ID = o.PK
	if u.DateJoined.IsZero() {
		u.DateJoined = time.Now().UTC()
	}
	if strings.TrimSpace(u.Username) == "" {
		return domain.Invalid("username", "This field is required.")
	}
	pw, _ := o.Fields["password"].(string)
	switch {
	case pw == "":
		return domain.Invalid("password", "This field is required.")
	case auth.IsHashed(pw):
		u.PasswordHash = pw
	default:
		hash, err := auth.HashPassword(pw)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
	}
	return l.store.Users().Upsert(ctx, u)
}

func stageOf(model string) int {
	for i, m := range order {
		if m == model {
			return i
		}
	}
	return -1
}
