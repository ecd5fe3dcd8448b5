package orderbook

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyIndex is returned by Min and Max when the tree holds no levels.
	ErrEmptyIndex = errors.New("orderbook: empty price index")
	// ErrNonPositiveSize is returned by Upsert for sizes <= 0.
	ErrNonPositiveSize = errors.New("orderbook: level size must be positive")
)

type Color uint8

const (
	red   Color = 0
	black Color = 1
)

type node struct {
	key    float64
	level  *PriceLevel
	color  Color
	left   *node
	right  *node
	parent *node
}

// RBTree is an ordered price -> size index.
type RBTree struct {
	root *node
	nil  *node // sentinel (black)
	size int
}

// NewRBTree constructs an empty tree with a black sentinel.
func NewRBTree() *RBTree {
	nilNode := &node{color: black}
	return &RBTree{
		root: nilNode,
		nil:  nilNode,
	}
}

func (t *RBTree) Size() int { return t.size }

// Find returns the level at price, or nil.
func (t *RBTree) Find(price float64) *PriceLevel {
	n := t.searchNode(price)
	if n == t.nil {
		return nil
	}
	return n.level
}

// Upsert sets the size at price, inserting the level if needed.
func (t *RBTree) Upsert(price, size float64) error {
	if !(size > 0) {
		return fmt.Errorf("%w: %g at %g", ErrNonPositiveSize, size, price)
	}

	y := t.nil
	x := t.root
	for x != t.nil {
		y = x
		if price < x.key {
			x = x.left
		} else if price > x.key {
			x = x.right
		} else {
			x.level.Size = size
			return nil
		}
	}

	z := &node{
		key:    price,
		level:  &PriceLevel{Price: price, Size: size},
		color:  red,
		left:   t.nil,
		right:  t.nil,
		parent: y,
	}

	if y == t.nil {
		t.root = z
	} else if z.key < y.key {
		y.left = z
	} else {
		y.right = z
	}
	t.insertFixup(z)
	t.size++
	return nil
}

// Remove deletes the level at price. It reports whether a level was removed.
func (t *RBTree) Remove(price float64) bool {
	z := t.searchNode(price)
	if z == t.nil {
		return false
	}
	t.deleteNode(z)
	t.size--
	return true
}

func (t *RBTree) Min() (float64, error) {
	n := t.minNode(t.root)
	if n == t.nil {
		return 0, ErrEmptyIndex
	}
	return n.key, nil
}

func (t *RBTree) Max() (float64, error) {
	n := t.maxNode(t.root)
	if n == t.nil {
		return 0, ErrEmptyIndex
	}
	return n.key, nil
}

// RangeSum adds up the sizes of every level whose price lies between lo and
// hi. Each bound is included or excluded according to its flag.
func (t *RBTree) RangeSum(lo, hi float64, inclusiveLo, inclusiveHi bool) float64 {
	var sum float64
	for n := t.lowerBound(lo, inclusiveLo); n != t.nil; n = t.next(n) {
		if n.key > hi || (!inclusiveHi && n.key == hi) {
			break
		}
		sum += n.level.Size
	}
	return sum
}

func (t *RBTree) ForEachAscending(fn func(*PriceLevel) bool) {
	for n := t.minNode(t.root); n != t.nil; n = t.next(n) {
		if !fn(n.level) {
			return
		}
	}
}

func (t *RBTree) ForEachDescending(fn func(*PriceLevel) bool) {
	for n := t.maxNode(t.root); n != t.nil; n = t.prev(n) {
		if !fn(n.level) {
			return
		}
	}
}

// Levels collects copies of all price levels in ascending order.
func (t *RBTree) Levels() []PriceLevel {
	levels := make([]PriceLevel, 0, t.size)
	t.ForEachAscending(func(pl *PriceLevel) bool {
		levels = append(levels, *pl)
		return true
	})
	return levels
}

func (t *RBTree) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	t.ForEachAscending(func(pl *PriceLevel) bool {
		if sb.Len() > 1 {
			sb.WriteByte(' ')
		}
		sb.WriteString(pl.String())
		return true
	})
	sb.WriteByte(']')
	return sb.String()
}

/******************** Internal helpers ********************/

func (t *RBTree) searchNode(price float64) *node {
	n := t.root
	for n != t.nil {
		if price < n.key {
			n = n.left
		} else if price > n.key {
			n = n.right
		} else {
			return n
		}
	}
	return t.nil
}

// lowerBound returns the smallest node with key >= price (or > price when
// inclusive is false).
func (t *RBTree) lowerBound(price float64, inclusive bool) *node {
	n := t.root
	best := t.nil
	for n != t.nil {
		if n.key > price || (inclusive && n.key == price) {
			best = n
			n = n.left
		} else {
			n = n.right
		}
	}
	return best
}

func (t *RBTree) minNode(n *node) *node {
	if n == t.nil {
		return t.nil
	}
	for n.left != t.nil {
		n = n.left
	}
	return n
}

func (t *RBTree) maxNode(n *node) *node {
	if n == t.nil {
		return t.nil
	}
	for n.right != t.nil {
		n = n.right
	}
	return n
}

func (t *RBTree) next(n *node) *node {
	if n == t.nil {
		return t.nil
	}
	if n.right != t.nil {
		return t.minNode(n.right)
	}
	p := n.parent
	for p != t.nil && n == p.right {
		n = p
		p = p.parent
	}
	return p
}

func (t *RBTree) prev(n *node) *node {
	if n == t.nil {
		return t.nil
	}
	if n.left != t.nil {
		return t.maxNode(n.left)
	}
	p := n.parent
	for p != t.nil && n == p.left {
		n = p
		p = p.parent
	}
	return p
}

func (t *RBTree) leftRotate(x *node) {
	y := x.right
	x.right = y.left
	if y.left != t.nil {
		y.left.parent = x
	}
	y.parent = x.parent
	if x.parent == t.nil {
		t.root = y
	} else if x == x.parent.left {
		x.parent.left = y
	} else {
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (t *RBTree) rightRotate(y *node) {
	x := y.left
	y.left = x.right
	if x.right != t.nil {
		x.right.parent = y
	}
	x.parent = y.parent
	if y.parent == t.nil {
		t.root = x
	} else if y == y.parent.right {
		y.parent.right = x
	} else {
		y.parent.left = x
	}
	x.right = y
	y.parent = x
}

func (t *RBTree) insertFixup(z *node) {
	for z.parent.color == red {
		if z.parent == z.parent.parent.left {
			y := z.parent.parent.right
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.right {
					z = z.parent
					t.leftRotate(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.rightRotate(z.parent.parent)
			}
		} else {
			y := z.parent.parent.left
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.left {
					z = z.parent
					t.rightRotate(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.leftRotate(z.parent.parent)
			}
		}
	}
	t.root.color = black
}

func (t *RBTree) transplant(u, v *node) {
	if u.parent == t.nil {
		t.root = v
	} else if u == u.parent.left {
		u.parent.left = v
	} else {
		u.parent.right = v
	}
	v.parent = u.parent
}

func (t *RBTree) deleteNode(z *node) {
	y := z
	yOrigColor := y.color
	var x *node

	if z.left == t.nil {
		x = z.right
		t.transplant(z, z.right)
	} else if z.right == t.nil {
		x = z.left
		t.transplant(z, z.left)
	} else {
		y = t.minNode(z.right)
		yOrigColor = y.color
		x = y.right
		if y.parent == z {
			x.parent = y
		} else {
			t.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
	}

	if yOrigColor == black {
		t.deleteFixup(x)
	}
	// the sentinel's parent is scratch space during fixup
	t.nil.parent = nil
}

func (t *RBTree) deleteFixup(x *node) {
	for x != t.root && x.color == black {
		if x == x.parent.left {
			w := x.parent.right
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.leftRotate(x.parent)
				w = x.parent.right
			}
			if w.left.color == black && w.right.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.right.color == black {
					w.left.color = black
					w.color = red
					t.rightRotate(w)
					w = x.parent.right
				}
				w.color = x.parent.color
				x.parent.color = black
				w.right.color = black
				t.leftRotate(x.parent)
				x = t.root
			}
		} else {
			w := x.parent.left
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.rightRotate(x.parent)
				w = x.parent.left
			}
			if w.right.color == black && w.left.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.left.color == black {
					w.right.color = black
					w.color = red
					t.leftRotate(w)
					w = x.parent.left
				}
				w.color = x.parent.color
				x.parent.color = black
				w.left.color = black
				t.rightRotate(x.parent)
				x = t.root
			}
		}
	}
	x.color = black
}
