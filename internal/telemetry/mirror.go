package telemetry

import "context"

// ReadingMirror receives a copy of every reading written through a
// mirrored repository. Implementations must be non-blocking; the InfluxDB
// client satisfies this with batched async writes.
type ReadingMirror interface {
	WriteReading(reading *Reading)
}

// MirroredRepository wraps a ReadingRepository and forwards successful
// writes to a mirror. Reads pass through untouched. The mirror only sees
// rows that actually landed in the primary store, and a mirror that drops
// points never fails the write.
type MirroredRepository struct {
	ReadingRepository
	mirror ReadingMirror
}

// WithMirror wraps repo so every successful write is also sent to mirror.
func WithMirror(repo ReadingRepository, mirror ReadingMirror) *MirroredRepository {
	return &MirroredRepository{ReadingRepository: repo, mirror: mirror}
}

// InsertOne stores the reading and mirrors it on success.
func (m *MirroredRepository) InsertOne(ctx context.Context, reading *Reading) error {
	if err := m.ReadingRepository.InsertOne(ctx, reading); err != nil {
		return err
	}
	m.mirror.WriteReading(reading)
	return nil
}

// InsertMany stores the batch and mirrors the rows that made it in.
// On a partial failure the successfully inserted prefix is still mirrored,
// matching what the primary store holds.
func (m *MirroredRepository) InsertMany(ctx context.Context, readings []Reading) (int, error) {
	inserted, err := m.ReadingRepository.InsertMany(ctx, readings)
	for i := 0; i < inserted; i++ {
		m.mirror.WriteReading(&readings[i])
	}
	return inserted, err
}

// Replace overwrites the stored reading and mirrors the new version.
func (m *MirroredRepository) Replace(ctx context.Context, id string, reading *Reading) error {
	if err := m.ReadingRepository.Replace(ctx, id, reading); err != nil {
		return err
	}
	m.mirror.WriteReading(reading)
	return nil
}
