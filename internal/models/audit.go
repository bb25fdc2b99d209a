package models

// Stamp records who created or last modified a row.

func (m *Metatype) Stamp(user string, creating bool) {
	if creating {
		m.CreatedBy = user
	}
	m.ModifiedBy = user
}

func (k *MetatypeKey) Stamp(user string, creating bool) {
	if creating {
		k.CreatedBy = user
	}
	k.ModifiedBy = user
}

func (r *MetatypeRelationship) Stamp(user string, creating bool) {
	if creating {
		r.CreatedBy = user
	}
	r.ModifiedBy = user
}

func (k *MetatypeRelationshipKey) Stamp(user string, creating bool) {
	if creating {
		k.CreatedBy = user
	}
	k.ModifiedBy = user
}

func (p *MetatypeRelationshipPair) Stamp(user string, creating bool) {
	if creating {
		p.CreatedBy = user
	}
	p.ModifiedBy = user
}

func (c *Container) Stamp(user string, creating bool) {
	if creating {
		c.CreatedBy = user
	}
	c.ModifiedBy = user
}

func (v *OntologyVersion) Stamp(user string, creating bool) {
	if creating {
		v.CreatedBy = user
	}
}

func (a *ContainerAlert) Stamp(user string, creating bool) {
	if creating {
		a.CreatedBy = user
	}
}
