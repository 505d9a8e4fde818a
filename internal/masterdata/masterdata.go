// Package masterdata identifies deletable master records without the
// caller needing to know their concrete type.
package masterdata

import (
	"context"
	"fmt"

	"github.com/dukerupert/grocysync/internal/grocy"
	"github.com/dukerupert/grocysync/internal/model"
)

type Kind string

const (
	KindProduct      Kind = "product"
	KindLocation     Kind = "location"
	KindQuantityUnit Kind = "quantity_unit"
)

var kinds = map[Kind]struct {
	entity grocy.Entity
	label  string
}{
	KindProduct:      {grocy.EntityProducts, "product"},
	KindLocation:     {grocy.EntityLocations, "location"},
	KindQuantityUnit: {grocy.EntityQuantityUnits, "quantity unit"},
}

// Entity returns the server collection for the kind, or "" if unknown.
func (k Kind) Entity() grocy.Entity {
	return kinds[k].entity
}

func (k Kind) Label() string {
	if info, ok := kinds[k]; ok {
		return info.label
	}
	return string(k)
}

// Ref points at one master record.
type Ref struct {
	Kind Kind
	ID   int64
	Name string
}

func ProductRef(p model.Product) Ref {
	return Ref{Kind: KindProduct, ID: int64(p.ID), Name: p.Name}
}

func LocationRef(l model.Location) Ref {
	return Ref{Kind: KindLocation, ID: int64(l.ID), Name: l.Name}
}

func QuantityUnitRef(q model.QuantityUnit) Ref {
	return Ref{Kind: KindQuantityUnit, ID: int64(q.ID), Name: q.Name}
}

// Question is the confirmation prompt shown before deleting.
func (r Ref) Question() string {
	return fmt.Sprintf("Delete %s %q?", r.Kind.Label(), r.Name)
}

func (r Ref) Valid() bool {
	_, ok := kinds[r.Kind]
	return ok && r.ID > 0
}

// Deleter removes the record a Ref points at.
type Deleter interface {
	Delete(ctx context.Context, ref Ref) error
}

type entityDeleter interface {
	Delete(ctx context.Context, entity grocy.Entity, id int64) error
}

// RemoteDeleter deletes through the sync gateway so the local table is
// invalidated on success.
type RemoteDeleter struct {
	gw entityDeleter
}

func NewRemoteDeleter(gw entityDeleter) *RemoteDeleter {
	return &RemoteDeleter{gw: gw}
}

func (d *RemoteDeleter) Delete(ctx context.Context, ref Ref) error {
	if !ref.Valid() {
		return fmt.Errorf("delete %s %d: invalid reference", ref.Kind, ref.ID)
	}
	return d.gw.Delete(ctx, ref.Kind.Entity(), ref.ID)
}
