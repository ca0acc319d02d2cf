package queue

const minDequeCap = 8

// deque is a growable ring buffer.
type deque[T any] struct {
	buf  []T
	head int
	n    int
}

func (d *deque[T]) len() int { return d.n }

func (d *deque[T]) pushBack(v T) {
	if d.n == len(d.buf) {
		d.grow()
	}
	d.buf[(d.head+d.n)%len(d.buf)] = v
	d.n++
}

func (d *deque[T]) popFront() T {
	var zero T
	v := d.buf[d.head]
	d.buf[d.head] = zero
	d.head = (d.head + 1) % len(d.buf)
	d.n--
	return v
}

func (d *deque[T]) front() T { return d.buf[d.head] }

func (d *deque[T]) at(i int) T { return d.buf[(d.head+i)%len(d.buf)] }

func (d *deque[T]) set(i int, v T) { d.buf[(d.head+i)%len(d.buf)] = v }

// truncate keeps the first n elements.
func (d *deque[T]) truncate(n int) {
	var zero T
	for i := n; i < d.n; i++ {
		d.set(i, zero)
	}
	if n < d.n {
		d.n = n
	}
	if d.n == 0 {
		d.head = 0
	}
}

func (d *deque[T]) grow() {
	size := max(minDequeCap, 2*len(d.buf))
	buf := make([]T, size)
	for i := 0; i < d.n; i++ {
		buf[i] = d.at(i)
	}
	d.buf = buf
	d.head = 0
}
