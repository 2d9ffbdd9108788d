package depwatch

type defineConfig struct {
	customSetter func()
	shallow      bool
}

type DefineOption func(*defineConfig)

// WithCustomSetter is called before every effective write, typically to warn
// about writes that should not happen.
func WithCustomSetter(fn func()) DefineOption {
	return func(c *defineConfig) {
		c.customSetter = fn
	}
}

// Shallow tracks the property itself but does not observe its value.
func Shallow() DefineOption {
	return func(c *defineConfig) {
		c.shallow = true
	}
}

// DefineReactive installs a tracked accessor for key on obj holding val.
func (rs *ReactiveSystem) DefineReactive(obj *Object, key string, val any, opts ...DefineOption) {
	cfg := &defineConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	rs.defineReactive(obj, key, val, true, cfg.customSetter, cfg.shallow)
}

func (rs *ReactiveSystem) defineReactive(obj *Object, key string, val any, hasVal bool, customSetter func(), shallow bool) {
	dep := rs.NewDep()

	var getter func() any
	var setter func(any)
	if p, ok := obj.props[key]; ok {
		if !p.Configurable {
			return
		}
		getter, setter = p.Get, p.Set
		if !hasVal && (getter == nil || setter != nil) {
			if getter != nil {
				val = getter()
			} else if !p.isAccessor() {
				val = p.Value
			}
		}
	}

	var childOb *Observer
	if !shallow {
		childOb = rs.Observe(val)
	}

	get := func() any {
		value := val
		if getter != nil {
			value = getter()
		}
		if rs.activeSub != nil {
			dep.Depend()
			if childOb != nil {
				childOb.dep.Depend()
				if arr, ok := value.(*Array); ok {
					dependArray(arr)
				}
			}
		}
		return value
	}

	set := func(newVal any) {
		value := val
		if getter != nil {
			value = getter()
		}
		if sameValue(newVal, value) {
			return
		}
		if customSetter != nil {
			customSetter()
		}
		// accessor without setter
		if getter != nil && setter == nil {
			return
		}
		if setter != nil {
			setter(newVal)
		} else {
			val = newVal
		}
		if !shallow {
			childOb = rs.Observe(newVal)
		} else {
			childOb = nil
		}
		dep.Notify()
	}

	obj.DefineProperty(key, Property{Get: get, Set: set, Configurable: true})
}
