package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/fieldops/punchcard/internal/models"
)

// TaskService reads the task and work-order catalogue the dispatch side
// maintains. The time-tracking server only consumes it.
type TaskService struct {
	db *gorm.DB
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{db: db}
}

// Tasks returns open tasks, newest first.
func (s *TaskService) Tasks() ([]models.Task, error) {
	var tasks []models.Task
	err := s.db.Where("status = ?", "open").
		Preload("WorkOrder").
		Order("created_at DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// TaskByID retrieves a task by ID
func (s *TaskService) TaskByID(id uint) (*models.Task, error) {
	var task models.Task
	err := s.db.Preload("WorkOrder").First(&task, id).Error
	if err != nil {
		return nil, fmt.Errorf("%w: #%d", ErrTaskNotFound, id)
	}
	return &task, nil
}

// CreateTask inserts a task, creating its work order by reference if needed.
func (s *TaskService) CreateTask(title, workOrderRef, clientName string) (*models.Task, error) {
	var order models.WorkOrder
	if workOrderRef != "" {
		err := s.db.Where("reference = ?", workOrderRef).First(&order).Error
		if err != nil {
			order = models.WorkOrder{Reference: workOrderRef, ClientName: clientName, Status: "open"}
			if err := s.db.Create(&order).Error; err != nil {
				return nil, err
			}
		}
	}

	task := models.Task{
		Title:       title,
		Status:      "open",
		WorkOrderID: order.ID,
	}
	if err := s.db.Create(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}
