package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"nativeai_backend/internal/models"
)

var ErrConversationNotFound = errors.New("conversation not found")

type ConversationRepository interface {
	Create(conversation *models.Conversation) error
	FindByID(id string) (*models.Conversation, error)
	FindByUser(userID string, limit, offset int) ([]models.Conversation, int64, error)
	Delete(id string) error

	CreateMessage(message *models.Message) error
	FindMessages(conversationID string, limit, offset int) ([]models.Message, error)
}

type ConversationRepositoryImpl struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &ConversationRepositoryImpl{db: db}
}

func (r *ConversationRepositoryImpl) Create(conversation *models.Conversation) error {
	return r.db.Create(conversation).Error
}

func (r *ConversationRepositoryImpl) FindByID(id string) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.First(&conversation, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &conversation, nil
}

func (r *ConversationRepositoryImpl) FindByUser(userID string, limit, offset int) ([]models.Conversation, int64, error) {
	var conversations []models.Conversation
	var total int64

	if err := r.db.Model(&models.Conversation{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Where("user_id = ?", userID).
		Order("updated_at DESC").
		Limit(limit).Offset(offset).
		Find(&conversations).Error
	return conversations, total, err
}

func (r *ConversationRepositoryImpl) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&models.Conversation{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrConversationNotFound
		}
		return nil
	})
}

// CreateMessage stores a message and bumps the parent conversation's
// updated_at so the listing order reflects recent activity.
func (r *ConversationRepositoryImpl) CreateMessage(message *models.Message) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", message.ConversationID).
			Update("updated_at", time.Now()).Error
	})
}

// FindMessages returns the newest `limit` messages (after skipping `offset`
// newest ones) in chronological order, so callers always see the most recent
// window of the conversation.
func (r *ConversationRepositoryImpl) FindMessages(conversationID string, limit, offset int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
