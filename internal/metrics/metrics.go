package metrics

type Counter interface {
	Inc()
}

type Metrics struct {
	Ticks          Counter
	TickFailures   Counter
	OrdersPlaced   Counter
	OrdersCanceled Counter
	OrderFailures  Counter
	FeedMessages   Counter
}

type noopCounter struct{}

func (noopCounter) Inc() {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		Ticks:          n,
		TickFailures:   n,
		OrdersPlaced:   n,
		OrdersCanceled: n,
		OrderFailures:  n,
		FeedMessages:   n,
	}
}
