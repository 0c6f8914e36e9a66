package taylor

import (
	"time"

	"github.com/rickb777/date/v2/timespan"
	"go.uber.org/zap"
)

// Op labels a recorded engine event.
type Op string

const (
	// OpWrap is recorded once per surrogate the engine builds.
	OpWrap Op = "wrap"
	// OpRecenter is recorded once per expansion point the engine moves:
	// the surrogate itself on the plain path, each embedded Taylor term
	// on the composite path.
	OpRecenter Op = "recenter"
)

// Event is one observable step of a surrogate's life.
type Event struct {
	Op Op
	// Surrogate is the engine-assigned id of the surrogate the event
	// belongs to. Cascaded recenters carry the owning surrogate's id.
	Surrogate string
	// PointDigest fingerprints the expansion point the event targeted.
	PointDigest uint64
	// At bounds when the event happened. Clock reads are not exact, so
	// the stamp is a span around the observation rather than an instant.
	At timespan.TimeSpan
}

// Recorder receives engine events synchronously. Implementations must be
// cheap; the engine calls them inline.
type Recorder interface {
	Record(Event)
}

const stampSlack = time.Millisecond

func stamp() timespan.TimeSpan {
	now := time.Now()
	return timespan.BetweenTimes(now.Add(-stampSlack), now.Add(stampSlack))
}

// observer fans engine happenings out to the configured logger and
// recorder. The zero value is inert.
type observer struct {
	logger *zap.Logger
	rec    Recorder
}

func (o observer) emit(op Op, msg string, id string, digest uint64, fields ...zap.Field) {
	if o.logger != nil {
		o.logger.Debug(msg, append(fields,
			zap.String("op", string(op)),
			zap.String("surrogate", id),
			zap.Uint64("point", digest),
		)...)
	}
	if o.rec != nil {
		o.rec.Record(Event{Op: op, Surrogate: id, PointDigest: digest, At: stamp()})
	}
}

func (o observer) wrapped(id string, digest uint64, fields ...zap.Field) {
	o.emit(OpWrap, "built first-order surrogate", id, digest, fields...)
}

func (o observer) recentered(id string, digest uint64) {
	o.emit(OpRecenter, "moved expansion point", id, digest)
}
