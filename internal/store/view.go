package store

import "fmt"

// View selects which slice the presentation layer shows.
type View int

const (
	ViewProducts View = iota
	ViewRecent
	ViewCart
	ViewOrders
)

// Views lists every view in navigation order.
func Views() []View {
	return []View{ViewProducts, ViewRecent, ViewCart, ViewOrders}
}

func (v View) String() string {
	switch v {
	case ViewProducts:
		return "products"
	case ViewRecent:
		return "recent"
	case ViewCart:
		return "cart"
	case ViewOrders:
		return "orders"
	}
	return fmt.Sprintf("View(%d)", int(v))
}

func (v View) Valid() bool {
	switch v {
	case ViewProducts, ViewRecent, ViewCart, ViewOrders:
		return true
	}
	return false
}

// Slice is the state slice a view renders.
func (v View) Slice() Slice {
	switch v {
	case ViewProducts:
		return SliceCatalog
	case ViewRecent:
		return SliceRecentViews
	case ViewCart:
		return SliceCart
	case ViewOrders:
		return SliceOrders
	}
	panic(fmt.Sprintf("store: unknown view %d", int(v)))
}

func ParseView(s string) (View, error) {
	for _, v := range Views() {
		if v.String() == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown view %q", s)
}

func (v View) MarshalText() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("unknown view %d", int(v))
	}
	return []byte(v.String()), nil
}

func (v *View) UnmarshalText(text []byte) error {
	parsed, err := ParseView(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
