package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func validCreateBookRequest() CreateBookRequest {
	pub := uuid.New()
	return CreateBookRequest{
		Title:       "A Wizard of Earthsea",
		PublisherID: &pub,
		CategoryID:  uuid.New(),
		AuthorIDs:   []uuid.UUID{uuid.New()},
	}
}

func validUpdateBookRequest() UpdateBookRequest {
	return UpdateBookRequest{
		Title:       "A Wizard of Earthsea",
		PublisherID: uuid.New(),
		CategoryID:  uuid.New(),
		AuthorIDs:   []uuid.UUID{uuid.New()},
	}
}

func TestCreateBookRequestSeriesPositionOptional(t *testing.T) {
	r := validCreateBookRequest()
	assert.NoError(t, r.Validate(), "absent series position is valid")

	r.SeriesPosition = intPtr(1)
	assert.NoError(t, r.Validate())

	r.SeriesPosition = intPtr(0)
	assert.Error(t, r.Validate(), "a present series position must be at least 1")
}

func TestUpdateBookRequestSeriesPositionOptional(t *testing.T) {
	r := validUpdateBookRequest()
	assert.NoError(t, r.Validate())

	r.SeriesPosition = intPtr(0)
	assert.Error(t, r.Validate())

	r.SeriesPosition = intPtr(3)
	assert.NoError(t, r.Validate())
}

func TestCreateBookRequestPublisherByIDOrName(t *testing.T) {
	r := validCreateBookRequest()
	r.PublisherID = nil
	assert.Error(t, r.Validate(), "publisher must arrive somehow")

	name := "Smallpress"
	r.PublisherName = &name
	assert.NoError(t, r.Validate())
}

func TestUpdateBookRequestRequiredFields(t *testing.T) {
	r := validUpdateBookRequest()
	r.Title = ""
	assert.Error(t, r.Validate())

	r = validUpdateBookRequest()
	r.PublisherID = uuid.Nil
	assert.Error(t, r.Validate())

	r = validUpdateBookRequest()
	r.CategoryID = uuid.Nil
	assert.Error(t, r.Validate())
}
