package model

// Collection is the ordered set of records, most recently added first.
type Collection []Record

// IndexOfURL returns the index of the record with the exact URL, or -1.
func (c Collection) IndexOfURL(url string) int {
	for i := range c {
		if c[i].URL == url {
			return i
		}
	}
	return -1
}

// HasURL reports whether a record with the exact URL exists.
func (c Collection) HasURL(url string) bool {
	return c.IndexOfURL(url) != -1
}

// IndexOfID returns the index of the record with the given ID, or -1.
func (c Collection) IndexOfID(id string) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

// ByID finds a record by ID, returns nil if not found.
func (c Collection) ByID(id string) *Record {
	if i := c.IndexOfID(id); i != -1 {
		return &c[i]
	}
	return nil
}

// Clone returns a copy whose records do not share tag slices with c.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	for i, r := range c {
		r.Tags = append([]string{}, r.Tags...)
		out[i] = r
	}
	return out
}
