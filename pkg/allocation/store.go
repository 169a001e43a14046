package allocation

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/apportion/pkg/calibrate"
	"github.com/charlie0129/apportion/pkg/events"
	"github.com/charlie0129/apportion/pkg/percent"
	"github.com/charlie0129/apportion/pkg/series"
)

// ErrNotFound is returned for an unknown allocation id.
var ErrNotFound = errors.New("allocation not found")

// Settings supplies the engine parameters. config.Config satisfies it.
type Settings interface {
	Precision() int
	Magnitude() float64
}

// Publisher receives change notifications. *events.EventHub satisfies it.
type Publisher interface {
	Publish(name string, payload any)
}

// Store owns allocations in memory. A single mutex serializes every
// operation, so engine calls never overlap on the same series.
type Store struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*Allocation
	order    []uuid.UUID
	settings Settings
	pub      Publisher
	now      func() time.Time
}

// NewStore creates an empty store. pub may be nil.
func NewStore(settings Settings, pub Publisher) *Store {
	return &Store{
		byID:     make(map[uuid.UUID]*Allocation),
		settings: settings,
		pub:      pub,
		now:      time.Now,
	}
}

// Create adds an allocation. Without percents every item gets an equal share;
// with percents, values that do not sum to one are reset to equal shares.
// Labels default to "Item 1", "Item 2", ... when only percents are given.
func (s *Store) Create(name string, labels []string, percents []float64) (*Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.Wrap(calibrate.ErrInvalidArgument, "name must not be empty")
	}
	if len(labels) == 0 {
		labels = defaultLabels(len(percents))
	}
	if len(labels) == 0 {
		return nil, pkgerrors.Wrap(calibrate.ErrInvalidArgument, "an allocation needs at least one item")
	}
	if len(percents) != 0 && len(percents) != len(labels) {
		return nil, pkgerrors.Wrapf(calibrate.ErrInvalidArgument, "got %d labels but %d percents", len(labels), len(percents))
	}
	for i, p := range percents {
		if !(p >= 0 && p <= 1) {
			return nil, pkgerrors.Wrapf(calibrate.ErrInvalidArgument, "percent %d must be between 0 and 1, got %v", i, p)
		}
	}

	now := s.now()
	a := &Allocation{
		ID:        uuid.New(),
		Name:      name,
		Items:     make([]*Item, len(labels)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, l := range labels {
		a.Items[i] = &Item{Label: l}
		if len(percents) != 0 {
			a.Items[i].Share = percents[i]
		}
	}

	adjusted, err := series.Bind[float64](a.Items, func(sh series.Slice[float64]) (bool, error) {
		return calibrate.Reset[float64](sh, len(percents) == 0, s.settings.Precision())
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID[a.ID] = a
	s.order = append(s.order, a.ID)
	s.publishChanged(a, events.OpCreate, nil)

	logrus.WithFields(logrus.Fields{
		"id":    a.ID,
		"name":  a.Name,
		"items": len(a.Items),
	}).Info("allocation created")

	return &Result{Adjusted: adjusted, Allocation: a.clone()}, nil
}

// Get returns a copy of the allocation with the given id.
func (s *Store) Get(id uuid.UUID) (*Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return a.clone(), nil
}

// List returns copies of all allocations in creation order.
func (s *Store) List() []*Allocation {
	s.mu.Lock()
	defer s.mu.Unlock()

	ret := make([]*Allocation, 0, len(s.order))
	for _, id := range s.order {
		ret = append(ret, s.byID[id].clone())
	}
	return ret
}

// Delete drops the allocation with the given id.
func (s *Store) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookup(id); err != nil {
		return err
	}

	delete(s.byID, id)
	s.order = slices.DeleteFunc(s.order, func(i uuid.UUID) bool { return i == id })

	if s.pub != nil {
		s.pub.Publish(events.SeriesDeleted, events.SeriesDeletedEvent{ID: id.String(), Ts: s.now().Unix()})
	}

	logrus.WithField("id", id).Info("allocation deleted")

	return nil
}

// Shift moves the share at index by magnitude and redistributes the rest.
func (s *Store) Shift(id uuid.UUID, index int, magnitude float64) (*Result, error) {
	return s.mutate(id, events.OpShift, &index, func(a *Allocation, precision int) (bool, error) {
		return series.Bind[float64](a.Items, func(sh series.Slice[float64]) (bool, error) {
			return calibrate.Shift[float64](sh, index, magnitude, precision)
		})
	})
}

// Increment raises the share at index by the configured magnitude.
func (s *Store) Increment(id uuid.UUID, index int) (*Result, error) {
	return s.Shift(id, index, s.settings.Magnitude())
}

// Decrement lowers the share at index by the configured magnitude.
func (s *Store) Decrement(id uuid.UUID, index int) (*Result, error) {
	return s.Shift(id, index, -s.settings.Magnitude())
}

// Edit sets the share at index to the value typed in text, such as "30%" or
// "0.3", and redistributes the difference.
func (s *Store) Edit(id uuid.UUID, index int, text string) (*Result, error) {
	return s.mutate(id, events.OpEdit, &index, func(a *Allocation, precision int) (bool, error) {
		if index < 0 || index >= len(a.Items) {
			return false, pkgerrors.Wrapf(calibrate.ErrInvalidArgument, "index %d out of range [0, %d)", index, len(a.Items))
		}

		magnitude, err := percent.Delta(a.Items[index].Share, text)
		if err != nil {
			return false, pkgerrors.Wrap(calibrate.ErrInvalidArgument, err.Error())
		}

		return series.Bind[float64](a.Items, func(sh series.Slice[float64]) (bool, error) {
			return calibrate.Shift[float64](sh, index, magnitude, precision)
		})
	})
}

// Remove deletes the item at index. The remaining items absorb its share.
func (s *Store) Remove(id uuid.UUID, index int) (*Result, error) {
	return s.mutate(id, events.OpRemove, &index, func(a *Allocation, precision int) (bool, error) {
		sh := series.Project[float64](a.Items)
		adjusted, err := calibrate.Remove[float64](&sh, index, precision)
		if err != nil {
			return false, err
		}

		a.Items = slices.Delete(a.Items, index, index+1)
		series.WriteBack[float64](a.Items, sh)

		return adjusted, nil
	})
}

// Reset gives every item an equal share if forced or if the shares drifted
// away from one.
func (s *Store) Reset(id uuid.UUID, force bool) (*Result, error) {
	return s.mutate(id, events.OpReset, nil, func(a *Allocation, precision int) (bool, error) {
		return series.Bind[float64](a.Items, func(sh series.Slice[float64]) (bool, error) {
			return calibrate.Reset[float64](sh, force, precision)
		})
	})
}

// Recalibrate spreads the drift of the shares away from one evenly over all
// items, if forced or if the drift exceeds the tolerance.
func (s *Store) Recalibrate(id uuid.UUID, force bool) (*Result, error) {
	return s.mutate(id, events.OpRecalibrate, nil, func(a *Allocation, precision int) (bool, error) {
		return recalibrate(a, force, precision)
	})
}

// RecalibrateAll runs a non-forced Recalibrate on every allocation and
// returns how many of them were adjusted.
func (s *Store) RecalibrateAll() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	precision := s.settings.Precision()
	count := 0
	for _, id := range s.order {
		a := s.byID[id]
		if len(a.Items) == 0 {
			continue
		}
		adjusted, err := recalibrate(a, false, precision)
		if err != nil {
			return count, pkgerrors.Wrapf(err, "failed to recalibrate allocation %s", id)
		}
		if adjusted {
			count++
			a.UpdatedAt = s.now()
			s.publishChanged(a, events.OpRecalibrate, nil)
		}
	}

	return count, nil
}

func recalibrate(a *Allocation, force bool, precision int) (bool, error) {
	return series.Bind[float64](a.Items, func(sh series.Slice[float64]) (bool, error) {
		return calibrate.Recalibrate[float64](sh, force, precision)
	})
}

// mutate runs fn on the allocation under the store lock and publishes a
// change event if fn adjusted the shares. Removing an item always counts as
// a change.
func (s *Store) mutate(id uuid.UUID, op string, index *int, fn func(a *Allocation, precision int) (bool, error)) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	adjusted, err := fn(a, s.settings.Precision())
	if err != nil {
		return nil, err
	}

	if adjusted || op == events.OpRemove {
		a.UpdatedAt = s.now()
		s.publishChanged(a, op, index)
	}

	logrus.WithFields(logrus.Fields{
		"id":       id,
		"op":       op,
		"adjusted": adjusted,
	}).Debug("allocation updated")

	return &Result{Adjusted: adjusted, Allocation: a.clone()}, nil
}

func (s *Store) lookup(id uuid.UUID) (*Allocation, error) {
	a, ok := s.byID[id]
	if !ok {
		return nil, pkgerrors.Wrapf(ErrNotFound, "no allocation with id %s", id)
	}
	return a, nil
}

func (s *Store) publishChanged(a *Allocation, op string, index *int) {
	if s.pub == nil {
		return
	}
	s.pub.Publish(events.SeriesChanged, events.SeriesChangedEvent{
		ID:     a.ID.String(),
		Name:   a.Name,
		Op:     op,
		Index:  index,
		Shares: a.Shares(),
		Ts:     s.now().Unix(),
	})
}
