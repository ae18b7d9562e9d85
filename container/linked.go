package container

type node struct {
	value      int
	prev, next *node
}

// Linked is a Sequence backed by a doubly-linked node chain. Indexed
// operations walk from whichever end is closer.
type Linked struct {
	head, tail *node
	size       int
}

// NewLinked returns an empty Linked.
func NewLinked() *Linked {
	return &Linked{}
}

func (l *Linked) Append(v int) {
	n := &node{value: v, prev: l.tail}
	if l.tail == nil {
		l.head = n
	} else {
		l.tail.next = n
	}
	l.tail = n
	l.size++
}

func (l *Linked) Len() int {
	return l.size
}

func (l *Linked) InsertAt(i, v int) error {
	if i < 0 || i > l.size {
		return outOfRange(i, l.size)
	}
	if i == l.size {
		l.Append(v)
		return nil
	}
	at := l.nodeAt(i)
	n := &node{value: v, prev: at.prev, next: at}
	if at.prev == nil {
		l.head = n
	} else {
		at.prev.next = n
	}
	at.prev = n
	l.size++
	return nil
}

func (l *Linked) RemoveAt(i int) (int, error) {
	if i < 0 || i >= l.size {
		return 0, outOfRange(i, l.size)
	}
	n := l.nodeAt(i)
	if n.prev == nil {
		l.head = n.next
	} else {
		n.prev.next = n.next
	}
	if n.next == nil {
		l.tail = n.prev
	} else {
		n.next.prev = n.prev
	}
	n.prev, n.next = nil, nil
	l.size--
	return n.value, nil
}

func (l *Linked) Get(i int) (int, error) {
	if i < 0 || i >= l.size {
		return 0, outOfRange(i, l.size)
	}
	return l.nodeAt(i).value, nil
}

// Sort runs a stable merge sort over the chain and then restores the
// back links and tail.
func (l *Linked) Sort() {
	if l.size < 2 {
		return
	}
	l.head = mergeSort(l.head)

	var prev *node
	for n := l.head; n != nil; n = n.next {
		n.prev = prev
		prev = n
	}
	l.tail = prev
}

// Values returns the elements in order.
func (l *Linked) Values() []int {
	out := make([]int, 0, l.size)
	for n := l.head; n != nil; n = n.next {
		out = append(out, n.value)
	}
	return out
}

// nodeAt expects 0 <= i < size.
func (l *Linked) nodeAt(i int) *node {
	if i < l.size/2 {
		n := l.head
		for ; i > 0; i-- {
			n = n.next
		}
		return n
	}
	n := l.tail
	for j := l.size - 1; j > i; j-- {
		n = n.prev
	}
	return n
}

// mergeSort sorts a chain linked through next only; prev links are left stale.
func mergeSort(head *node) *node {
	if head == nil || head.next == nil {
		return head
	}
	slow, fast := head, head.next
	for fast != nil && fast.next != nil {
		slow = slow.next
		fast = fast.next.next
	}
	second := slow.next
	slow.next = nil
	return merge(mergeSort(head), mergeSort(second))
}

func merge(a, b *node) *node {
	var dummy node
	tail := &dummy
	for a != nil && b != nil {
		if b.value < a.value {
			tail.next = b
			b = b.next
		} else {
			tail.next = a
			a = a.next
		}
		tail = tail.next
	}
	if a != nil {
		tail.next = a
	} else {
		tail.next = b
	}
	return dummy.next
}
