package provider

import "context"

// Adapter translates the canonical operations to one vendor's API.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use and hold
//     no per-request state beyond their client handle.
//   - Context: every method must abort when ctx is done.
//   - Completeness: a call returns the vendor's full answer or an error,
//     never a silently truncated result.
//   - Errors: "no such number" or "not free" answers are not faults. Search
//     returns an empty response, CheckAvailability returns false, and Reserve
//     returns ErrNotAvailable. Transport and vendor faults should be returned
//     as *Error so the status code survives.
type Adapter interface {
	// ID returns the provider identifier this adapter was built for.
	ID() string

	// SearchNumbers lists numbers matching req.
	SearchNumbers(ctx context.Context, req SearchRequest) (*SearchResponse, error)

	// CheckAvailability reports whether phoneNumber can be reserved.
	CheckAvailability(ctx context.Context, phoneNumber string) (bool, error)

	// Reserve holds a number for req.Duration.
	Reserve(ctx context.Context, req ReserveRequest) (*Reservation, error)

	// Purchase converts a reservation into an owned number.
	Purchase(ctx context.Context, req PurchaseRequest) (*Purchase, error)

	// Port submits a port-in request.
	Port(ctx context.Context, req PortRequest) (*PortResult, error)

	// Ping is a lightweight reachability probe.
	Ping(ctx context.Context) error
}
