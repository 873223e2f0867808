package migrations

import "github.com/ridoystarlord/bookingsdb/schema"

func init() {
	Register(AddBookingTotalsAndEventDetails)
}

var (
	bookingTotalAmount = schema.Numeric("totalAmount", 10, 2).NotNull().WithDefault("0")
	bookingUpdatedAt   = schema.Timestamp("updatedAt").NotNull().WithDefault("now()")
	eventPrice         = schema.Numeric("price", 10, 2).NotNull().WithDefault("0")
	eventLocation      = schema.Varchar("location", 255).Null()
)

// AddBookingTotalsAndEventDetails adds the booking total and last-update
// timestamp, and the event price and location.
var AddBookingTotalsAndEventDetails = Migration{
	ID:   "1717236000000",
	Name: "AddBookingTotalsAndEventDetails",
	Up: []schema.Change{
		schema.Add("bookings", bookingTotalAmount),
		schema.Add("bookings", bookingUpdatedAt),
		schema.Add("events", eventPrice),
		schema.Add("events", eventLocation),
	},
	Down: []schema.Change{
		schema.Drop("events", eventLocation),
		schema.Drop("events", eventPrice),
		schema.Drop("bookings", bookingUpdatedAt),
		schema.Drop("bookings", bookingTotalAmount),
	},
}
