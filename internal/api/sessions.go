package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/secstore/secstore/internal/decode"
	"github.com/secstore/secstore/internal/ingest"
	"github.com/secstore/secstore/internal/session"
	"github.com/secstore/secstore/pkg/models"
)

const (
	arrowContentType = "application/vnd.apache.arrow.stream"

	// defaultMessageLimit caps rows returned by the messages endpoint
	// when no limit parameter is given.
	defaultMessageLimit = 50000
)

var gzipMagic = []byte{0x1f, 0x8b}

// createSessionHandler ingests one uploaded log file as a new session.
// The upload is the "file" multipart field; its filename serves as the
// format hint. Ingestion is synchronous and atomic: any failure removes
// the partially written session before the error is returned.
func (s *Server) createSessionHandler(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "multipart field 'file' is required",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to open upload: %v", err),
		})
	}
	defer file.Close()

	reader, err := maybeGunzip(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to decompress upload: %v", err),
		})
	}

	records, err := s.registry.DecodeWithHint(reader, fileHeader.Filename)
	if err != nil {
		return c.Status(decodeErrorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	ctx := c.Context()
	sessionID, err := s.store.Create(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	meta, err := s.ingester.Run(ctx, sessionID, records)
	if err != nil {
		// Discard whatever the failed ingestion already wrote.
		if delErr := s.store.Delete(ctx, sessionID); delErr != nil {
			s.logger.Error().
				Err(delErr).
				Str("session_id", sessionID).
				Msg("Failed to clean up aborted session")
		}
		return c.Status(ingestErrorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"session_id": sessionID,
		"row_count":  meta.RowCount,
	})
}

func (s *Server) sessionMetaHandler(c *fiber.Ctx) error {
	meta, err := s.store.ReadMeta(c.Context(), c.Params("id"))
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(meta)
}

// sessionMessagesHandler streams the session's rows back as one arrow IPC
// stream. The limit is applied at chunk granularity: whole chunks are
// appended until the row count reaches the cap.
func (s *Server) sessionMessagesHandler(c *fiber.Ctx) error {
	limit := defaultMessageLimit
	if l := c.Query("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "limit must be a positive integer",
			})
		}
		limit = parsed
	}

	ctx := c.Context()
	sessionID := c.Params("id")

	refs, err := s.store.ListChunks(ctx, sessionID)
	if err != nil {
		return sessionError(c, err)
	}

	var rows []models.Row
	for _, ref := range refs {
		if len(rows) >= limit {
			break
		}
		data, err := s.store.ReadChunk(ctx, sessionID, ref)
		if err != nil {
			return sessionError(c, err)
		}
		chunkRows, err := ingest.DecodeChunk(data)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		rows = append(rows, chunkRows...)
	}

	return sendArrow(c, rows)
}

func (s *Server) sessionSearchHandler(c *fiber.Ctx) error {
	var filter models.Filter
	if err := json.Unmarshal(c.Body(), &filter); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("invalid filter: %v", err),
		})
	}

	rows, err := s.engine.Search(c.Context(), c.Params("id"), &filter)
	if err != nil {
		return sessionError(c, err)
	}

	return sendArrow(c, rows)
}

func (s *Server) sessionPayloadHandler(c *fiber.Ctx) error {
	rowID, err := strconv.ParseUint(c.Params("row_id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "row_id must be an unsigned integer",
		})
	}

	value, err := s.store.GetPayload(c.Context(), c.Params("id"), uint32(rowID))
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(value)
}

// deleteSessionHandler removes the session. Deleting an unknown session
// still answers 204; the outcome is the same either way.
func (s *Server) deleteSessionHandler(c *fiber.Ctx) error {
	if err := s.store.Delete(c.Context(), c.Params("id")); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// maybeGunzip wraps the reader in a gzip decompressor when the content
// starts with the gzip magic bytes, replaying the sniffed prefix.
func maybeGunzip(r io.Reader) (io.Reader, error) {
	header := make([]byte, 2)
	n, err := io.ReadFull(r, header)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return bytes.NewReader(header[:n]), nil
		}
		return nil, err
	}

	combined := io.MultiReader(bytes.NewReader(header), r)
	if !bytes.Equal(header, gzipMagic) {
		return combined, nil
	}
	return gzip.NewReader(combined)
}

func sendArrow(c *fiber.Ctx, rows []models.Row) error {
	data, err := ingest.EncodeRows(rows)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	c.Set(fiber.HeaderContentType, arrowContentType)
	return c.Send(data)
}

func sessionError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	if errors.Is(err, session.ErrSessionNotFound) || errors.Is(err, session.ErrPayloadNotFound) {
		status = fiber.StatusNotFound
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func decodeErrorStatus(err error) int {
	var recErr *decode.RecordError
	if errors.Is(err, decode.ErrFormatUndetected) ||
		errors.Is(err, decode.ErrInvalidBody) ||
		errors.As(err, &recErr) {
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

func ingestErrorStatus(err error) int {
	if errors.Is(err, ingest.ErrInvalidTimestamp) || errors.Is(err, ingest.ErrInvalidDirection) {
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}
