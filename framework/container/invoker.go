package container

import (
	"fmt"
	"reflect"
)

var containerType = reflect.TypeOf((*Container)(nil))

// plan is the reflected construction recipe of a class.
type plan struct {
	params []reflect.Type
	fields []fieldPlan
}

type fieldPlan struct {
	index []int
	entry string
}

// ── Create ────────────────────────────────────────────────────────────────────

// create instantiates class without resolving any dependency.
func (c *Container) create(class string) (any, error) {
	cl, ok := c.state.registry.Lookup(class)
	if !ok {
		return nil, fmt.Errorf("%w: class [%s] is not registered", ErrInvalidDefinition, class)
	}
	if !cl.HasConstructor() {
		return cl.newInstance(), nil
	}
	if n := cl.ctor.Type().NumIn(); n > 0 {
		return nil, fmt.Errorf("%w: class [%s] constructor requires %d parameter(s); use autowire or a factory",
			ErrInvalidDefinition, class, n)
	}
	return call(cl.ctor, nil)
}

// ── Autowire ──────────────────────────────────────────────────────────────────

// autowire instantiates class, resolving constructor parameters by type key.
// Classes without a constructor get their `inject` tagged fields populated.
//
//	type Handler struct {
//	    Repo   *UserRepository `inject:""`
//	    Mailer Mailer          `inject:"mailer"`
//	}
func (c *Container) autowire(class string) (any, error) {
	cl, ok := c.state.registry.Lookup(class)
	if !ok {
		return nil, fmt.Errorf("%w: class [%s] is not registered", ErrInvalidDefinition, class)
	}
	p, err := c.planFor(cl)
	if err != nil {
		return nil, err
	}

	if cl.HasConstructor() {
		args, err := c.resolveParams(class, p.params)
		if err != nil {
			return nil, err
		}
		return call(cl.ctor, args)
	}

	t := cl.Type
	pointer := t.Kind() == reflect.Pointer
	if pointer {
		t = t.Elem()
	}
	rv := reflect.New(t)
	for _, f := range p.fields {
		v, err := c.Get(f.entry)
		if err != nil {
			return nil, fmt.Errorf("autowire [%s]: field %s: %w", class, t.FieldByIndex(f.index).Name, err)
		}
		field := rv.Elem().FieldByIndex(f.index)
		arg, err := assignable(v, field.Type())
		if err != nil {
			return nil, fmt.Errorf("autowire [%s]: field %s: %w", class, t.FieldByIndex(f.index).Name, err)
		}
		field.Set(arg)
	}
	if pointer {
		return rv.Interface(), nil
	}
	return rv.Elem().Interface(), nil
}

// planFor returns the construction plan of cl, memoized when the definition
// cache is enabled.
func (c *Container) planFor(cl *Class) (*plan, error) {
	cache := c.state.plans
	if cache != nil {
		if p, ok := cache.Get(cl.Name); ok {
			return p, nil
		}
	}

	p := &plan{}
	if cl.HasConstructor() {
		ft := cl.ctor.Type()
		for i := 0; i < ft.NumIn(); i++ {
			p.params = append(p.params, ft.In(i))
		}
	} else {
		fields, err := injectFields(cl)
		if err != nil {
			return nil, err
		}
		p.fields = fields
	}

	if cache != nil {
		cache.Add(cl.Name, p)
	}
	return p, nil
}

func injectFields(cl *Class) ([]fieldPlan, error) {
	t := cl.Type
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, nil
	}

	var fields []fieldPlan
	for _, sf := range reflect.VisibleFields(t) {
		tag, ok := sf.Tag.Lookup("inject")
		if !ok {
			continue
		}
		if !sf.IsExported() {
			return nil, fmt.Errorf("%w: class [%s] field %s is tagged inject but unexported",
				ErrInvalidDefinition, cl.Name, sf.Name)
		}
		entry := tag
		if entry == "" {
			entry = typeKey(sf.Type)
		}
		fields = append(fields, fieldPlan{index: sf.Index, entry: entry})
	}
	return fields, nil
}

// resolveParams resolves each parameter type from the container. *Container
// parameters receive c itself.
func (c *Container) resolveParams(owner string, params []reflect.Type) ([]reflect.Value, error) {
	args := make([]reflect.Value, len(params))
	for i, pt := range params {
		if pt == containerType {
			args[i] = reflect.ValueOf(c)
			continue
		}
		key := typeKey(pt)
		v, err := c.Get(key)
		if err != nil {
			return nil, fmt.Errorf("autowire [%s]: parameter %d (%s): %w", owner, i, key, err)
		}
		arg, err := assignable(v, pt)
		if err != nil {
			return nil, fmt.Errorf("autowire [%s]: parameter %d: %w", owner, i, err)
		}
		args[i] = arg
	}
	return args, nil
}

// ── Callables ─────────────────────────────────────────────────────────────────

// callable resolves the string form of a factory: an entry holding a callable,
// or a class whose instance is the callable.
func (c *Container) callable(target string) (any, error) {
	if c.Has(target) {
		return c.Get(target)
	}
	if c.state.registry.Has(target) {
		return c.create(target)
	}
	return nil, fmt.Errorf("%w: factory [%s] is neither an entry nor a class", ErrInvalidDefinition, target)
}

// invoke calls a factory. Functions have their parameters autowired and must
// return a value, optionally followed by an error.
func (c *Container) invoke(factory any) (any, error) {
	switch f := factory.(type) {
	case Factory:
		return f.Create(c)
	case nil:
		return nil, fmt.Errorf("%w: factory is nil", ErrInvalidDefinition)
	}

	fn := reflect.ValueOf(factory)
	if fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: %T is not callable", ErrInvalidDefinition, factory)
	}
	if err := validateConstructor(fn.Type()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	params := make([]reflect.Type, fn.Type().NumIn())
	for i := range params {
		params[i] = fn.Type().In(i)
	}
	args, err := c.resolveParams(fmt.Sprintf("%T", factory), params)
	if err != nil {
		return nil, err
	}
	return call(fn, args)
}

// delegator turns a delegator definition value into a DelegatorFactory.
// Class identifiers are instantiated without dependencies.
func (c *Container) delegator(d any) (DelegatorFactory, error) {
	switch v := d.(type) {
	case DelegatorFactory:
		return v, nil
	case func(*Container, string, Callback) (any, error):
		return DelegatorFunc(v), nil
	case string:
		instance, err := c.create(v)
		if err != nil {
			return nil, err
		}
		df, ok := instance.(DelegatorFactory)
		if !ok {
			return nil, fmt.Errorf("%w: delegator [%s] (%T) does not implement DelegatorFactory",
				ErrInvalidDefinition, v, instance)
		}
		return df, nil
	}
	return nil, fmt.Errorf("%w: %T is not a delegator", ErrInvalidDefinition, d)
}

// ── Reflect helpers ───────────────────────────────────────────────────────────

func call(fn reflect.Value, args []reflect.Value) (any, error) {
	out := fn.Call(args)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

func assignable(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("%w: nil is not assignable to %s", ErrTypeMismatch, t)
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("%w: %s is not assignable to %s", ErrTypeMismatch, rv.Type(), t)
	}
	return rv, nil
}
