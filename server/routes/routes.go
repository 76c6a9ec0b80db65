package routes

import (
	"errors"
	log "log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Yarin78/morphy-sub004/avl"
	"github.com/Yarin78/morphy-sub004/database"
	"github.com/Yarin78/morphy-sub004/index"
	"github.com/Yarin78/morphy-sub004/snapshot"
	"github.com/Yarin78/morphy-sub004/storage"
	"github.com/Yarin78/morphy-sub004/transaction"
)

// StatusOf maps an error to the HTTP status it is reported with.
func StatusOf(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, database.ErrNoDatabase),
		errors.Is(err, index.ErrNotFound),
		errors.Is(err, snapshot.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, index.ErrDuplicateKey),
		errors.Is(err, transaction.ErrConflict),
		errors.Is(err, database.ErrExists),
		errors.Is(err, snapshot.ErrAmbiguous):
		return fiber.StatusConflict
	case errors.Is(err, database.ErrInvalidText),
		errors.Is(err, database.ErrUnknownKind):
		return fiber.StatusBadRequest
	case errors.Is(err, avl.ErrCorrupt),
		errors.Is(err, storage.ErrBadMagic),
		errors.Is(err, storage.ErrTruncated):
		return fiber.StatusInternalServerError
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders handler errors as {"error": ...} with the mapped status.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := StatusOf(err)
	if code >= fiber.StatusInternalServerError {
		log.Error("request failed", "method", c.Method(), "path", c.Path(), "err", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

type textBody struct {
	Text string `json:"text"`
}

func parseText(c *fiber.Ctx) (string, error) {
	var body textBody
	if err := c.BodyParser(&body); err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if body.Text == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, "text required")
	}
	return body.Text, nil
}

func parseID(c *fiber.Ctx) (int32, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 32)
	if err != nil || id < 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return int32(id), nil
}

func SetupRoutes(router fiber.Router, dbs *Databases) {
	router.Get("/databases", func(c *fiber.Ctx) error {
		names, err := dbs.List()
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"databases": names})
	})

	router.Post("/databases", func(c *fiber.Ctx) error {
		var body struct {
			Name string `json:"name"`
		}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid json")
			}
		}
		if body.Name == "" {
			body.Name = "db_" + uuid.NewString()[:8]
		}
		db, err := dbs.Create(body.Name)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"name": body.Name, "id": db.ID()})
	})

	router.Get("/:db/validate", func(c *fiber.Ctx) error {
		db, err := dbs.Get(c.Params("db"))
		if err != nil {
			return err
		}
		if err := db.ValidateAll(c.UserContext()); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"valid": true})
	})

	router.Get("/:db/stats", func(c *fiber.Ctx) error {
		db, err := dbs.Get(c.Params("db"))
		if err != nil {
			return err
		}
		stats, err := db.Stats()
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"id": db.ID(), "indexes": stats})
	})

	setupSnapshotRoutes(router, dbs)
	setupEntityRoutes(router, dbs)
}

func setupSnapshotRoutes(router fiber.Router, dbs *Databases) {
	router.Get("/:db/snapshots", func(c *fiber.Ctx) error {
		db, err := dbs.Get(c.Params("db"))
		if err != nil {
			return err
		}
		snaps, err := snapshot.List(db.Dir())
		if err != nil {
			return err
		}
		if snaps == nil {
			snaps = []snapshot.Snapshot{}
		}
		return c.JSON(fiber.Map{"snapshots": snaps})
	})

	router.Post("/:db/snapshots", func(c *fiber.Ctx) error {
		var body struct {
			Message string `json:"message"`
		}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid json")
			}
		}
		if _, err := dbs.Get(c.Params("db")); err != nil {
			return err
		}
		// Closing flushes every index, so the copy is complete.
		dir, err := dbs.Release(c.Params("db"))
		if err != nil {
			return err
		}
		snap, err := snapshot.Create(dir, body.Message)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(snap)
	})

	router.Post("/:db/snapshots/:id/restore", func(c *fiber.Ctx) error {
		if _, err := dbs.Get(c.Params("db")); err != nil {
			return err
		}
		dir, err := dbs.Release(c.Params("db"))
		if err != nil {
			return err
		}
		snap, err := snapshot.Restore(dir, c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(snap)
	})
}

func setupEntityRoutes(router fiber.Router, dbs *Databases) {
	textIndex := func(c *fiber.Ctx) (database.TextIndex, error) {
		kind, err := database.ParseKind(c.Params("kind"))
		if err != nil {
			return nil, err
		}
		db, err := dbs.Get(c.Params("db"))
		if err != nil {
			return nil, err
		}
		return db.Index(kind)
	}

	router.Get("/:db/:kind", func(c *fiber.Ctx) error {
		ti, err := textIndex(c)
		if err != nil {
			return err
		}
		recs, err := ti.List(c.Query("from"), c.QueryBool("desc"), c.QueryInt("limit", 50))
		if err != nil {
			return err
		}
		if recs == nil {
			recs = []database.Record{}
		}
		return c.JSON(fiber.Map{"records": recs})
	})

	router.Get("/:db/:kind/find", func(c *fiber.Ctx) error {
		key := c.Query("key")
		if key == "" {
			return fiber.NewError(fiber.StatusBadRequest, "key required")
		}
		ti, err := textIndex(c)
		if err != nil {
			return err
		}
		recs, err := ti.Find(key)
		if err != nil {
			return err
		}
		if recs == nil {
			recs = []database.Record{}
		}
		return c.JSON(fiber.Map{"records": recs})
	})

	router.Get("/:db/:kind/:id", func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		ti, err := textIndex(c)
		if err != nil {
			return err
		}
		rec, ok, err := ti.Get(id)
		if err != nil {
			return err
		}
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "entity not found")
		}
		return c.JSON(rec)
	})

	router.Post("/:db/:kind", func(c *fiber.Ctx) error {
		text, err := parseText(c)
		if err != nil {
			return err
		}
		ti, err := textIndex(c)
		if err != nil {
			return err
		}
		rec, err := ti.Add(text)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(rec)
	})

	router.Put("/:db/:kind/:id", func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		text, err := parseText(c)
		if err != nil {
			return err
		}
		ti, err := textIndex(c)
		if err != nil {
			return err
		}
		rec, err := ti.Rename(id, text)
		if err != nil {
			return err
		}
		return c.JSON(rec)
	})

	router.Delete("/:db/:kind/:id", func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		ti, err := textIndex(c)
		if err != nil {
			return err
		}
		ok, err := ti.Delete(id)
		if err != nil {
			return err
		}
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "entity not found")
		}
		return c.JSON(fiber.Map{"deleted": id})
	})
}
