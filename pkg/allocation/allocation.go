package allocation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Item is one labelled share of an allocation.
type Item struct {
	Label string  `json:"label"`
	Share float64 `json:"share"`
}

func (i *Item) Percent() float64 { return i.Share }

func (i *Item) SetPercent(p float64) { i.Share = p }

// Allocation is a named Share Series owned by a Store.
type Allocation struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Items     []*Item   `json:"items"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Shares returns the current share of every item, in order.
func (a *Allocation) Shares() []float64 {
	ret := make([]float64, len(a.Items))
	for i, it := range a.Items {
		ret[i] = it.Share
	}
	return ret
}

func (a *Allocation) clone() *Allocation {
	c := *a
	c.Items = make([]*Item, len(a.Items))
	for i, it := range a.Items {
		cp := *it
		c.Items[i] = &cp
	}
	return &c
}

// Result is what every mutating Store operation returns.
type Result struct {
	// Adjusted tells whether the shares were redistributed.
	Adjusted   bool        `json:"adjusted"`
	Allocation *Allocation `json:"allocation"`
}

func defaultLabels(n int) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("Item %d", i+1)
	}
	return labels
}
