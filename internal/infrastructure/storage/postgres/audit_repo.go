package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"agora/internal/core/id"
	"agora/internal/domain/audit"
)

// CompressionAlgo specifies the compression algorithm used for snapshots.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// Compile-time check that AuditRepo implements audit.Repository.
var _ audit.Repository = (*AuditRepo)(nil)

// AuditRepo persists the append-only privileged-action log. Post snapshots
// can carry full raw content, so large ones are stored zstd-compressed.
type AuditRepo struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int // bytes
}

// NewAuditRepo creates the audit repository.
func NewAuditRepo(txManager *TxManager) (*AuditRepo, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditRepo{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024, // 10KB
	}, nil
}

// Create records an audit entry.
func (r *AuditRepo) Create(ctx context.Context, e *audit.Entry) error {
	if id.IsNil(e.ID) {
		e.ID = id.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	snapshot := []byte(e.Snapshot)
	var compressed []byte
	algo := CompressionNone
	if len(snapshot) > r.compressThreshold {
		compressed = r.encoder.EncodeAll(snapshot, nil)
		snapshot = nil
		algo = CompressionZstd
	}

	sql := `
		INSERT INTO audit_log (
			id, action, actor_id, post_id, topic_id, context,
			snapshot, snapshot_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	querier := r.txManager.GetQuerier(ctx)
	_, err := querier.Exec(ctx, sql,
		e.ID, e.Action, e.ActorID, e.PostID, e.TopicID, e.Context,
		snapshot, compressed, algo, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	return nil
}

// ListByPost retrieves audit history for a post, newest first.
func (r *AuditRepo) ListByPost(ctx context.Context, postID id.ID, limit int) ([]*audit.Entry, error) {
	sql := `
		SELECT id, action, actor_id, post_id, topic_id, context,
		       snapshot, snapshot_compressed, compression_algo, created_at
		FROM audit_log
		WHERE post_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.txManager.GetQuerier(ctx).Query(ctx, sql, postID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}
	defer rows.Close()

	var entries []*audit.Entry
	for rows.Next() {
		var e audit.Entry
		var snapshot, compressed []byte
		var algo CompressionAlgo
		err := rows.Scan(
			&e.ID, &e.Action, &e.ActorID, &e.PostID, &e.TopicID, &e.Context,
			&snapshot, &compressed, &algo, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		if algo == CompressionZstd && len(compressed) > 0 {
			decompressed, err := r.decoder.DecodeAll(compressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress snapshot: %w", err)
			}
			snapshot = decompressed
		}
		e.Snapshot = snapshot

		entries = append(entries, &e)
	}

	return entries, rows.Err()
}
