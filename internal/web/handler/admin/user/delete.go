package user

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/felipemart/baseprojeto/internal/db/models"
	"github.com/felipemart/baseprojeto/internal/web/handler"
)

// Delete soft deletes a user. The form must carry the exact confirmation text
// DELETAR, deleting your own account is rejected, and the deleting admin is
// stamped into deleted_by. The deleted user's authorization cache entries are
// dropped so an open session stops passing checks.
func (s *Service) Delete(c *fiber.Ctx) error {
	nav := listNav()

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return c.Redirect(Path)
	}

	var in deleteInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Invalid form data",
		}, handler.BaseLayout)
	}

	if err := s.validator.Struct(in); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Digite DELETAR para confirmar a exclusão.",
		}, handler.BaseLayout)
	}

	actor, ok := s.currentUser(c)
	if ok && actor.ID == uint64(id) {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Você não pode excluir sua própria conta.",
		}, handler.BaseLayout)
	}

	var target models.User
	if err := s.db.First(&target, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Redirect(Path)
		}

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Failed to load user.",
		}, handler.BaseLayout)
	}

	// Stamp the audit column and soft delete in one transaction so a failed
	// delete never leaves an active user carrying deleted_by.
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&target).Update("deleted_by", actor.ID).Error; err != nil {
			return err
		}

		return tx.Delete(&target).Error
	})
	if err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Failed to delete user: " + err.Error(),
		}, handler.BaseLayout)
	}

	if err := s.cache.Invalidate(c.Context(), target.ID); err != nil {
		log.Error().Err(err).Uint64("user_id", target.ID).Msg("failed to invalidate authorization cache")
	}

	log.Info().Uint64("user_id", target.ID).Uint64("deleted_by", actor.ID).Msg("user soft deleted")

	return c.Redirect(Path)
}

// Restore brings a soft-deleted user back. The form must carry the exact
// confirmation text RESTAURAR, restoring your own account is rejected, and
// the restoring admin is stamped into restored_by with the restore time.
func (s *Service) Restore(c *fiber.Ctx) error {
	nav := listNav()

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return c.Redirect(Path)
	}

	var in restoreInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Invalid form data",
		}, handler.BaseLayout)
	}

	if err := s.validator.Struct(in); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Digite RESTAURAR para confirmar a restauração.",
		}, handler.BaseLayout)
	}

	actor, ok := s.currentUser(c)
	if ok && actor.ID == uint64(id) {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Você não pode restaurar sua própria conta.",
		}, handler.BaseLayout)
	}

	var target models.User
	if err := s.db.Unscoped().First(&target, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Redirect(Path)
		}

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Failed to load user.",
		}, handler.BaseLayout)
	}

	if !target.IsDeleted() {
		return c.Redirect(Path)
	}

	now := time.Now()

	err = s.db.Unscoped().Model(&target).Updates(map[string]interface{}{
		"deleted_at":  nil,
		"restored_by": actor.ID,
		"restored_at": now,
	}).Error
	if err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Failed to restore user: " + err.Error(),
		}, handler.BaseLayout)
	}

	log.Info().Uint64("user_id", target.ID).Uint64("restored_by", actor.ID).Msg("user restored")

	return c.Redirect(Path)
}
