package repokit

// Binder produces a repo bound to one Queryer, typically a transaction
type Binder[T any] interface {
	Bind(Queryer) T
}

// BindFunc adapts a constructor such as repo.New into a Binder
type BindFunc[T any] func(Queryer) T

func (f BindFunc[T]) Bind(q Queryer) T { return f(q) }

// RequireQueryer panics on a nil Queryer
func RequireQueryer(q Queryer) Queryer {
	if q == nil {
		panic("repokit: bind on nil Queryer")
	}
	return q
}

// MustBind binds b to q after RequireQueryer
func MustBind[T any](b Binder[T], q Queryer) T { return b.Bind(RequireQueryer(q)) }
