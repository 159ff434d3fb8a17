package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/vitalog/vitalog-api/internal/core/domain"
	"github.com/vitalog/vitalog-api/internal/core/ports"
)

func fileDoc(id, key string, created time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "filename", Value: id + ".png"},
		{Key: "original_name", Value: "cat.png"},
		{Key: "mime_type", Value: "image/png"},
		{Key: "size", Value: int64(3)},
		{Key: "key", Value: key},
		{Key: "url", Value: "https://cdn/" + key},
		{Key: "uploaded_by", Value: "user-1"},
		{Key: "created_at", Value: created},
		{Key: "updated_at", Value: created},
	}
}

func TestFileRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		repo := NewFileRepository(mt.DB)

		f := &domain.File{Key: "uploads/a.png", Metadata: map[string]string{"a": "b"}}
		if err := repo.Create(context.Background(), f); err != nil {
			mt.Fatalf("Create error: %v", err)
		}
		if f.ID == "" || f.CreatedAt.IsZero() {
			mt.Fatalf("unexpected file: %+v", f)
		}
	})

	mt.Run("duplicate key is a conflict", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "dup"}))
		repo := NewFileRepository(mt.DB)

		err := repo.Create(context.Background(), &domain.File{Key: "uploads/a.png"})
		if !errors.Is(err, domain.ErrConflict) {
			mt.Fatalf("expected conflict, got %v", err)
		}
		if msg := domain.Message(err, ""); msg != "unique constraint violation on field: key" {
			mt.Fatalf("unexpected message %q", msg)
		}
	})

	mt.Run("find by key", func(mt *mtest.T) {
		now := time.Now().UTC().Truncate(time.Millisecond)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.files", mtest.FirstBatch, fileDoc("f-1", "uploads/a.png", now)))
		repo := NewFileRepository(mt.DB)

		got, err := repo.FindByKey(context.Background(), "uploads/a.png")
		if err != nil {
			mt.Fatalf("FindByKey error: %v", err)
		}
		if got.ID != "f-1" || got.UploadedBy == nil || *got.UploadedBy != "user-1" {
			mt.Fatalf("unexpected file: %+v", got)
		}
	})

	mt.Run("find by id not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.files", mtest.FirstBatch))
		repo := NewFileRepository(mt.DB)

		_, err := repo.FindByID(context.Background(), "nope")
		if !errors.Is(err, domain.ErrNotFound) {
			mt.Fatalf("expected not found, got %v", err)
		}
	})

	mt.Run("list", func(mt *mtest.T) {
		now := time.Now().UTC().Truncate(time.Millisecond)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.files", mtest.FirstBatch, bson.D{{Key: "n", Value: int32(2)}}),
			mtest.CreateCursorResponse(0, "test.files", mtest.FirstBatch,
				fileDoc("f-2", "uploads/b.png", now),
				fileDoc("f-1", "uploads/a.png", now.Add(-time.Minute)),
			),
		)
		repo := NewFileRepository(mt.DB)

		files, total, err := repo.List(context.Background(), ports.ListFilesFilter{UploadedBy: "user-1", Page: 1, Limit: 20})
		if err != nil {
			mt.Fatalf("List error: %v", err)
		}
		if total != 2 || len(files) != 2 || files[0].ID != "f-2" {
			mt.Fatalf("unexpected page: total=%d files=%+v", total, files)
		}

		var sort bson.Raw
		for _, ev := range mt.GetAllStartedEvents() {
			if ev.CommandName == "find" {
				sort, _ = ev.Command.Lookup("sort").DocumentOK()
			}
		}
		keys, err := sort.Elements()
		if err != nil || len(keys) != 2 || keys[0].Key() != "created_at" || keys[1].Key() != "_id" {
			mt.Fatalf("expected sort on created_at then _id, got %v", sort)
		}
	})

	mt.Run("delete", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(1)}))
		if err := NewFileRepository(mt.DB).Delete(context.Background(), "f-1"); err != nil {
			mt.Fatalf("Delete error: %v", err)
		}
	})

	mt.Run("delete missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(0)}))
		err := NewFileRepository(mt.DB).Delete(context.Background(), "f-1")
		if !errors.Is(err, domain.ErrNotFound) {
			mt.Fatalf("expected not found, got %v", err)
		}
	})
}
