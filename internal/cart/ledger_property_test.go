package cart

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

var propertyPrices = []decimal.Decimal{
	decimal.RequireFromString("4.50"),
	decimal.RequireFromString("12.00"),
	decimal.RequireFromString("0.99"),
	decimal.RequireFromString("7.25"),
}

// applyOps replays a generated operation sequence against a ledger and a
// plain map model, returning both.
func applyOps(kinds, ids, qtys []int) (*Ledger, map[int64]int) {
	l := NewLedger()
	model := make(map[int64]int)
	if len(ids) == 0 || len(qtys) == 0 {
		return l, model
	}

	for i, kind := range kinds {
		id := int64(ids[i%len(ids)] % len(propertyPrices))
		qty := qtys[i%len(qtys)]
		p := propertyPrices[id]

		switch kind {
		case 0:
			l.AddItem(id, "item", p)
			model[id]++
		case 1:
			l.SetQuantity(id, "item", p, qty)
			if qty <= 0 {
				delete(model, id)
			} else {
				model[id] = qty
			}
		case 2:
			l.RemoveItem(id)
			delete(model, id)
		default:
			l.Clear()
			model = make(map[int64]int)
		}
	}
	return l, model
}

func TestLedgerInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	opsGen := gen.SliceOf(gen.IntRange(0, 3))
	idsGen := gen.SliceOfN(8, gen.IntRange(0, 100))
	qtyGen := gen.SliceOfN(8, gen.IntRange(-2, 6))

	properties.Property("no duplicate ids and no non-positive quantities", prop.ForAll(
		func(kinds, ids, qtys []int) bool {
			l, _ := applyOps(kinds, ids, qtys)
			seen := make(map[int64]bool)
			for _, line := range l.Lines() {
				if seen[line.ID] || line.Quantity <= 0 {
					return false
				}
				seen[line.ID] = true
			}
			return true
		},
		opsGen, idsGen, qtyGen,
	))

	properties.Property("quantities match the reference model", prop.ForAll(
		func(kinds, ids, qtys []int) bool {
			l, model := applyOps(kinds, ids, qtys)
			if l.Len() != len(model) {
				return false
			}
			for id, qty := range model {
				if l.Quantity(id) != qty {
					return false
				}
			}
			return true
		},
		opsGen, idsGen, qtyGen,
	))

	properties.Property("total equals rounded sum of price times quantity", prop.ForAll(
		func(kinds, ids, qtys []int) bool {
			l, model := applyOps(kinds, ids, qtys)
			want := decimal.Zero
			for id, qty := range model {
				want = want.Add(propertyPrices[id].Mul(decimal.NewFromInt(int64(qty))))
			}
			return l.Total().Equal(want.Round(2))
		},
		opsGen, idsGen, qtyGen,
	))

	properties.TestingRun(t)
}
