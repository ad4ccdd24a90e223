package variable

// Container is an ordered name to Variable map, as used for scene, project
// and object variables.
type Container struct {
	names []string
	vars  map[string]*Variable
}

func NewContainer() *Container {
	return &Container{vars: make(map[string]*Variable)}
}

// Has reports whether name is declared without creating it.
func (c *Container) Has(name string) bool {
	_, ok := c.vars[name]
	return ok
}

// Lookup returns the named variable if it exists.
func (c *Container) Lookup(name string) (*Variable, bool) {
	v, ok := c.vars[name]
	return v, ok
}

// Get returns the named variable, creating a number 0 when it is missing.
func (c *Container) Get(name string) *Variable {
	if v, ok := c.vars[name]; ok {
		return v
	}
	v := New()
	c.Insert(name, v)
	return v
}

// Insert declares or replaces name. Replacing keeps the original position.
func (c *Container) Insert(name string, v *Variable) {
	if _, ok := c.vars[name]; !ok {
		c.names = append(c.names, name)
	}
	c.vars[name] = v
}

// Remove deletes name if present.
func (c *Container) Remove(name string) {
	if _, ok := c.vars[name]; !ok {
		return
	}
	delete(c.vars, name)
	for i, n := range c.names {
		if n == name {
			c.names = append(c.names[:i], c.names[i+1:]...)
			return
		}
	}
}

// Names returns declared names in insertion order.
func (c *Container) Names() []string {
	return append([]string(nil), c.names...)
}

func (c *Container) Len() int { return len(c.names) }

// Clone returns a deep copy.
func (c *Container) Clone() *Container {
	out := NewContainer()
	for _, n := range c.names {
		out.Insert(n, c.vars[n].Clone())
	}
	return out
}

// Structure returns the container as a structure variable, sharing nothing.
func (c *Container) Structure() *Variable {
	s := NewStructure()
	for _, n := range c.names {
		s.SetChild(n, c.vars[n].Clone())
	}
	return s
}
