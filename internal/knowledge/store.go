package knowledge

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"autofill/internal/config"
	"autofill/internal/embedding"
	"autofill/internal/models"
	"autofill/pkg/logger"
)

const (
	fieldID        = "id"
	fieldText      = "text"
	fieldSource    = "source"
	fieldEmbedding = "embedding"

	maxIDLength     = 64
	maxTextLength   = 65535
	maxSourceLength = 512

	// fetchExtra widens the raw vector search beyond k so the diversity
	// re-ranking has candidates to choose between.
	fetchExtra = 2
)

// collectionName maps a session to its private Milvus collection.
func collectionName(sessionID string) string {
	return "session_" + sessionID
}

// Store is a session-scoped vector knowledge store backed by Milvus. Each
// session owns one collection; dropping the collection forgets the session.
type Store struct {
	client client.Client
	embed  embedding.Embedding
	dim    int
	log    *logger.Logger
}

// NewStore connects to Milvus and returns a Store that embeds with the given
// model.
func NewStore(ctx context.Context, cfg config.MilvusConfig, embed embedding.Embedding, dim int) (*Store, error) {
	c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}
	return &Store{
		client: c,
		embed:  embed,
		dim:    dim,
		log:    logger.New("knowledge", ""),
	}, nil
}

// Close releases the Milvus connection.
func (s *Store) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// Index embeds the segments and inserts them into the session's collection,
// creating the collection on first use. Re-indexing is additive.
func (s *Store) Index(ctx context.Context, sessionID string, segments []models.Segment) error {
	if len(segments) == 0 {
		return nil
	}

	collName := collectionName(sessionID)
	if err := s.ensureCollection(ctx, collName); err != nil {
		return err
	}

	texts := make([]string, len(segments))
	sources := make([]string, len(segments))
	ids := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
		sources[i] = seg.SourceID
		ids[i] = uuid.New().String()
	}

	vectors, err := s.embed.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed segments: %w", err)
	}
	if len(vectors) != len(segments) {
		return fmt.Errorf("embedding count mismatch: got %d vectors for %d segments", len(vectors), len(segments))
	}

	idCol := entity.NewColumnVarChar(fieldID, ids)
	textCol := entity.NewColumnVarChar(fieldText, texts)
	sourceCol := entity.NewColumnVarChar(fieldSource, sources)
	vectorCol := entity.NewColumnFloatVector(fieldEmbedding, s.dim, vectors)

	if _, err := s.client.Insert(ctx, collName, "", idCol, textCol, sourceCol, vectorCol); err != nil {
		return fmt.Errorf("failed to insert into collection %s: %w", collName, err)
	}
	if err := s.client.Flush(ctx, collName, false); err != nil {
		return fmt.Errorf("failed to flush collection %s: %w", collName, err)
	}

	s.log.WithSession(sessionID).WithPayload(map[string]interface{}{
		"segments":   len(segments),
		"collection": collName,
	}).Info("indexed segments")

	return nil
}

// HasDocuments reports whether the session has any indexed content.
func (s *Store) HasDocuments(ctx context.Context, sessionID string) (bool, error) {
	collName := collectionName(sessionID)

	exists, err := s.client.HasCollection(ctx, collName)
	if err != nil {
		return false, fmt.Errorf("failed to check collection %s: %w", collName, err)
	}
	if !exists {
		return false, nil
	}

	stats, err := s.client.GetCollectionStatistics(ctx, collName)
	if err != nil {
		return false, fmt.Errorf("failed to read statistics for %s: %w", collName, err)
	}
	rows, err := strconv.ParseInt(stats["row_count"], 10, 64)
	if err != nil {
		return false, fmt.Errorf("unexpected row_count %q for %s: %w", stats["row_count"], collName, err)
	}
	return rows > 0, nil
}

// Search embeds the query, fetches a widened candidate set, and re-ranks it
// for diversity before returning the top k segments.
func (s *Store) Search(ctx context.Context, sessionID, query string, k int) ([]models.Segment, error) {
	collName := collectionName(sessionID)

	queryVec, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	if err := s.client.LoadCollection(ctx, collName, false); err != nil {
		return nil, fmt.Errorf("failed to load collection %s: %w", collName, err)
	}

	sp, _ := entity.NewIndexIvfFlatSearchParam(10)
	results, err := s.client.Search(
		ctx, collName, []string{}, "",
		[]string{fieldText, fieldSource, fieldEmbedding},
		[]entity.Vector{entity.FloatVector(queryVec)},
		fieldEmbedding, entity.L2, k+fetchExtra, sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection %s: %w", collName, err)
	}

	texts, sources, embeddings := collectCandidates(results)

	selected := maximalMarginalRelevance(queryVec, embeddings, mmrLambda, k)
	segments := make([]models.Segment, 0, len(selected))
	for _, idx := range selected {
		segments = append(segments, models.Segment{
			Text:     texts[idx],
			SourceID: sources[idx],
		})
	}

	s.log.WithSession(sessionID).WithPayload(map[string]interface{}{
		"candidates": len(embeddings),
		"selected":   len(segments),
	}).Debug("search completed")

	return segments, nil
}

// collectCandidates flattens search results into parallel text/source/vector
// slices. Rows are taken up to the shortest of the reported result count and
// the three column lengths, so a truncated column can never be over-indexed.
func collectCandidates(results []client.SearchResult) (texts, sources []string, embeddings [][]float32) {
	for _, res := range results {
		var textCol, sourceCol *entity.ColumnVarChar
		var vecCol *entity.ColumnFloatVector
		for _, field := range res.Fields {
			switch field.Name() {
			case fieldText:
				textCol, _ = field.(*entity.ColumnVarChar)
			case fieldSource:
				sourceCol, _ = field.(*entity.ColumnVarChar)
			case fieldEmbedding:
				vecCol, _ = field.(*entity.ColumnFloatVector)
			}
		}
		if textCol == nil || sourceCol == nil || vecCol == nil {
			continue
		}

		textData := textCol.Data()
		sourceData := sourceCol.Data()
		vecData := vecCol.Data()
		rows := res.ResultCount
		for _, n := range []int{len(textData), len(sourceData), len(vecData)} {
			if n < rows {
				rows = n
			}
		}
		for i := 0; i < rows; i++ {
			texts = append(texts, textData[i])
			sources = append(sources, sourceData[i])
			embeddings = append(embeddings, vecData[i])
		}
	}
	return texts, sources, embeddings
}

// Drop removes the session's collection. Dropping a session that was never
// indexed is a no-op.
func (s *Store) Drop(ctx context.Context, sessionID string) error {
	collName := collectionName(sessionID)

	exists, err := s.client.HasCollection(ctx, collName)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", collName, err)
	}
	if !exists {
		return nil
	}

	if err := s.client.DropCollection(ctx, collName); err != nil {
		return fmt.Errorf("failed to drop collection %s: %w", collName, err)
	}
	s.log.WithSession(sessionID).Info("dropped session collection")
	return nil
}

// ensureCollection creates and indexes the session collection if needed, and
// loads it for querying.
func (s *Store) ensureCollection(ctx context.Context, collName string) error {
	exists, err := s.client.HasCollection(ctx, collName)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", collName, err)
	}

	if !exists {
		schema := entity.NewSchema().
			WithName(collName).
			WithDescription("session-scoped document segments").
			WithField(entity.NewField().WithName(fieldID).
				WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxIDLength).
				WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(fieldText).
				WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxTextLength)).
			WithField(entity.NewField().WithName(fieldSource).
				WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxSourceLength)).
			WithField(entity.NewField().WithName(fieldEmbedding).
				WithDataType(entity.FieldTypeFloatVector).WithDim(int64(s.dim)))

		if err := s.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", collName, err)
		}

		idx, err := entity.NewIndexIvfFlat(entity.L2, 128)
		if err != nil {
			return fmt.Errorf("failed to build index: %w", err)
		}
		if err := s.client.CreateIndex(ctx, collName, fieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", collName, err)
		}
	}

	if err := s.client.LoadCollection(ctx, collName, false); err != nil {
		return fmt.Errorf("failed to load collection %s: %w", collName, err)
	}
	return nil
}
