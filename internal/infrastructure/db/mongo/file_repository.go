package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vitalog/vitalog-api/internal/core/domain"
	"github.com/vitalog/vitalog-api/internal/core/ports"
)

const collectionFiles = "files"

var errFileNotFound = domain.NewError(domain.ErrNotFound, "file not found")

type FileRepository struct {
	col *mongo.Collection
}

var _ ports.FileRepository = (*FileRepository)(nil)

func NewFileRepository(db *mongo.Database) *FileRepository {
	return &FileRepository{col: db.Collection(collectionFiles)}
}

type fileDocument struct {
	ID           string            `bson:"_id"`
	Filename     string            `bson:"filename"`
	OriginalName string            `bson:"original_name"`
	MimeType     string            `bson:"mime_type"`
	Size         int64             `bson:"size"`
	Key          string            `bson:"key"`
	URL          string            `bson:"url"`
	UploadedBy   *string           `bson:"uploaded_by,omitempty"`
	Metadata     map[string]string `bson:"metadata,omitempty"`
	CreatedAt    time.Time         `bson:"created_at"`
	UpdatedAt    time.Time         `bson:"updated_at"`
}

func newFileDocument(f *domain.File) fileDocument {
	return fileDocument{
		ID:           f.ID,
		Filename:     f.Filename,
		OriginalName: f.OriginalName,
		MimeType:     f.MimeType,
		Size:         f.Size,
		Key:          f.Key,
		URL:          f.URL,
		UploadedBy:   f.UploadedBy,
		Metadata:     f.Metadata,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

func (d *fileDocument) toDomain() *domain.File {
	return &domain.File{
		ID:           d.ID,
		Filename:     d.Filename,
		OriginalName: d.OriginalName,
		MimeType:     d.MimeType,
		Size:         d.Size,
		Key:          d.Key,
		URL:          d.URL,
		UploadedBy:   d.UploadedBy,
		Metadata:     d.Metadata,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func (r *FileRepository) Create(ctx context.Context, f *domain.File) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	f.CreatedAt, f.UpdatedAt = now, now

	_, err := r.col.InsertOne(ctx, newFileDocument(f))
	return translate(err, errFileNotFound, "key")
}

func (r *FileRepository) FindByID(ctx context.Context, id string) (*domain.File, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *FileRepository) FindByKey(ctx context.Context, key string) (*domain.File, error) {
	return r.findOne(ctx, bson.M{"key": key})
}

func (r *FileRepository) findOne(ctx context.Context, filter bson.M) (*domain.File, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc fileDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(err, errFileNotFound, "")
	}
	return doc.toDomain(), nil
}

// List pages through files newest first. An empty UploadedBy matches every document.
func (r *FileRepository) List(ctx context.Context, filter ports.ListFilesFilter) ([]*domain.File, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	query := bson.M{}
	if filter.UploadedBy != "" {
		query["uploaded_by"] = filter.UploadedBy
	}

	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count files: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find files: %w", err)
	}
	defer cur.Close(ctx)

	var docs []fileDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode files: %w", err)
	}

	files := make([]*domain.File, 0, len(docs))
	for i := range docs {
		files = append(files, docs[i].toDomain())
	}
	return files, total, nil
}

func (r *FileRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err, errFileNotFound, "")
	}
	if res.DeletedCount == 0 {
		return errFileNotFound
	}
	return nil
}

// EnsureIndexes creates the unique key index and the listing indexes.
func (r *FileRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "uploaded_by", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
