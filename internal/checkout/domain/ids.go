package domain

import (
	"crypto/rand"
	"io"
	"time"

	"github.com/segmentio/ksuid"
)

const (
	OrderNumberPrefix = "FND-"
	orderNumberLength = 9
	orderNumberChars  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// Largest multiple of len(orderNumberChars) that fits in a byte.
	orderNumberByteLimit = 256 - 256%len(orderNumberChars)
)

// OrderIdentity is the pair of identifiers assigned to a new order.
type OrderIdentity struct {
	ID     string
	Number string
}

// NewOrderIdentity derives the order id from now plus a random KSUID payload and
// generates a customer-facing order number.
func NewOrderIdentity(now time.Time) (OrderIdentity, error) {
	id, err := ksuid.NewRandomWithTime(now)
	if err != nil {
		return OrderIdentity{}, err
	}
	number, err := NewOrderNumber()
	if err != nil {
		return OrderIdentity{}, err
	}
	return OrderIdentity{ID: id.String(), Number: number}, nil
}

// NewOrderNumber returns "FND-" followed by uppercase alphanumerics. Uniqueness
// is not checked here.
func NewOrderNumber() (string, error) {
	return orderNumberFrom(rand.Reader)
}

func orderNumberFrom(r io.Reader) (string, error) {
	out := make([]byte, 0, orderNumberLength)
	buf := make([]byte, orderNumberLength)
	for len(out) < orderNumberLength {
		n, err := io.ReadFull(r, buf[:orderNumberLength-len(out)])
		if err != nil {
			return "", err
		}
		for _, c := range buf[:n] {
			if int(c) < orderNumberByteLimit {
				out = append(out, orderNumberChars[int(c)%len(orderNumberChars)])
			}
		}
	}
	return OrderNumberPrefix + string(out), nil
}
