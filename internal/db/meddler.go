package db

import (
	"database/sql"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
)

func init() {
	meddler.Register("address", HexMeddler[common.Address]{parse: common.HexToAddress})
	meddler.Register("hash", HexMeddler[common.Hash]{parse: common.HexToHash})
}

type hexValue interface {
	common.Address | common.Hash
	Hex() string
}

// HexMeddler stores addresses and hashes as hex strings.
// Pointer fields map to NULL when nil.
type HexMeddler[T hexValue] struct {
	parse func(string) T
}

func (m HexMeddler[T]) PreRead(fieldAddr any) (any, error) {
	return new(sql.NullString), nil
}

func (m HexMeddler[T]) PostRead(fieldAddr, scanTarget any) error {
	ns, ok := scanTarget.(*sql.NullString)
	if !ok {
		return fmt.Errorf("expected *sql.NullString, got %T", scanTarget)
	}

	switch ptr := fieldAddr.(type) {
	case *T:
		var zero T
		*ptr = zero
		if ns.Valid {
			*ptr = m.parse(ns.String)
		}
	case **T:
		*ptr = nil
		if ns.Valid {
			v := m.parse(ns.String)
			*ptr = &v
		}
	default:
		return fmt.Errorf("cannot read hex column into %T", fieldAddr)
	}

	return nil
}

func (m HexMeddler[T]) PreWrite(field any) (any, error) {
	switch v := field.(type) {
	case T:
		return v.Hex(), nil
	case *T:
		if v == nil {
			return nil, nil
		}
		return (*v).Hex(), nil
	default:
		return nil, fmt.Errorf("cannot write %T as a hex column", field)
	}
}
