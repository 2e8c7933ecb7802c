package frame

import "github.com/RoaringBitmap/roaring/v2"

// Validity masks are roaring bitmaps of null positions. A nil mask means the
// column has no nulls; masks are never mutated once attached to a column.

func maskFromValid(valid []bool) *roaring.Bitmap {
	var m *roaring.Bitmap
	for i, ok := range valid {
		if ok {
			continue
		}
		if m == nil {
			m = roaring.New()
		}
		m.Add(uint32(i))
	}
	return m
}

func maskAll(n int) *roaring.Bitmap {
	m := roaring.New()
	if n > 0 {
		m.AddRange(0, uint64(n))
	}
	return m
}

func maskContains(m *roaring.Bitmap, i int) bool {
	return m != nil && m.Contains(uint32(i))
}

func maskCount(m *roaring.Bitmap) int {
	if m == nil {
		return 0
	}
	return int(m.GetCardinality())
}

// maskSlice returns the null positions in [offset, offset+length) shifted to
// start at zero.
func maskSlice(m *roaring.Bitmap, offset, length int) *roaring.Bitmap {
	if m == nil || length == 0 {
		return nil
	}
	end := uint32(offset + length)
	var out *roaring.Bitmap
	it := m.Iterator()
	it.AdvanceIfNeeded(uint32(offset))
	for it.HasNext() {
		p := it.Next()
		if p >= end {
			break
		}
		if out == nil {
			out = roaring.New()
		}
		out.Add(p - uint32(offset))
	}
	return out
}

// maskAppend adds the positions of src, shifted by offset, to dst.
func maskAppend(dst, src *roaring.Bitmap, offset int) *roaring.Bitmap {
	if src == nil || src.IsEmpty() {
		return dst
	}
	if dst == nil {
		dst = roaring.New()
	}
	it := src.Iterator()
	for it.HasNext() {
		dst.Add(it.Next() + uint32(offset))
	}
	return dst
}

func normalizeMask(m *roaring.Bitmap) *roaring.Bitmap {
	if m == nil || m.IsEmpty() {
		return nil
	}
	return m
}
