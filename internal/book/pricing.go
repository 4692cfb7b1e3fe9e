package book

// Price walks the relevant side of a merged book and returns the
// volume-weighted average price per unit for the requested quantity.
// A BUY consumes asks from the cheapest level up, a SELL consumes bids from
// the highest level down. When the aggregate depth is smaller than the
// requested quantity the average covers the available depth only. Returns 0
// when nothing could be filled (empty side or zero quantity).
func Price(b Book, op Operation, quantity float64) float64 {
	var filled, cost float64
	for _, order := range b.Side(op) {
		if filled+order.Amount <= quantity {
			filled += order.Amount
			cost += order.Amount * order.Price
			continue
		}
		remaining := quantity - filled
		filled += remaining
		cost += remaining * order.Price
		break
	}
	if filled <= 0 {
		return 0
	}
	return cost / filled
}

// BestLimitOrders splits the requested quantity across venues by walking the
// merged book top-down and accumulating per-exchange totals. Each returned
// order carries the total amount taken from that exchange and the price of
// the last level touched there, i.e. the worst price a single limit order on
// that venue would need to accept. Results keep the order in which each
// exchange first appeared during the walk; timestamps are zeroed.
func BestLimitOrders(b Book, op Operation, quantity float64) []Order {
	type alloc struct {
		amount float64
		price  float64
	}
	allocs := make(map[Exchange]*alloc)
	sequence := []Exchange{}

	take := func(o Order, amount float64) {
		a, ok := allocs[o.Exchange]
		if !ok {
			a = &alloc{}
			allocs[o.Exchange] = a
			sequence = append(sequence, o.Exchange)
		}
		a.amount += amount
		a.price = o.Price
	}

	var filled float64
	for _, order := range b.Side(op) {
		if filled+order.Amount <= quantity {
			filled += order.Amount
			take(order, order.Amount)
			continue
		}
		remaining := quantity - filled
		filled += remaining
		take(order, remaining)
		break
	}

	orders := make([]Order, 0, len(sequence))
	for _, exchange := range sequence {
		a := allocs[exchange]
		orders = append(orders, Order{Price: a.price, Amount: a.amount, Exchange: exchange})
	}
	return orders
}
