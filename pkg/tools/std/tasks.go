package std

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ilkoid/poncho-chat/pkg/todo"
	"github.com/ilkoid/poncho-chat/pkg/tools"
)

// TaskResult - ответ add_task и complete_task.
type TaskResult struct {
	Task    todo.Task `json:"task"`
	Message string    `json:"message"`
}

// TaskList - ответ get_tasks.
type TaskList struct {
	Tasks []todo.Task `json:"tasks"`
	Count int         `json:"count"`
}

// AddTaskTool - добавляет задачу в общий список.
type AddTaskTool struct {
	manager *todo.Manager
}

func NewAddTaskTool(manager *todo.Manager) *AddTaskTool {
	return &AddTaskTool{manager: manager}
}

func (t *AddTaskTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "add_task",
		Description: "Add a new task to the task list",
		Parameters: objectSchema(map[string]any{
			"title": stringProp("The task title/description"),
			"priority": map[string]any{
				"type":        "string",
				"enum":        []string{"low", "medium", "high"},
				"description": "Task priority level",
			},
		}, "title"),
	}
}

func (t *AddTaskTool) Execute(ctx context.Context, args tools.Args) (tools.Envelope, error) {
	var in struct {
		Title    string `json:"title"`
		Priority string `json:"priority"`
	}
	if err := args.Decode(&in); err != nil {
		return tools.Envelope{}, err
	}

	// После timeout диспетчера goroutine ещё жива; store не трогаем
	if err := ctx.Err(); err != nil {
		return tools.Envelope{}, err
	}
	task, err := t.manager.Add(in.Title, todo.Priority(in.Priority))
	if err != nil {
		return tools.Envelope{}, err
	}

	return tools.OK(TaskResult{
		Task:    task,
		Message: fmt.Sprintf("Task %q added with %s priority", task.Title, task.Priority),
	}), nil
}

// GetTasksTool - список задач с фильтром all|completed|pending.
type GetTasksTool struct {
	manager *todo.Manager
}

func NewGetTasksTool(manager *todo.Manager) *GetTasksTool {
	return &GetTasksTool{manager: manager}
}

func (t *GetTasksTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "get_tasks",
		Description: "Get list of tasks with optional filtering",
		Parameters: objectSchema(map[string]any{
			"filter": map[string]any{
				"type":        "string",
				"enum":        []string{"all", "completed", "pending"},
				"description": "Filter tasks by status",
			},
		}),
	}
}

func (t *GetTasksTool) Execute(ctx context.Context, args tools.Args) (tools.Envelope, error) {
	var in struct {
		Filter string `json:"filter"`
	}
	if err := args.Decode(&in); err != nil {
		return tools.Envelope{}, err
	}

	list, err := t.manager.List(todo.Filter(in.Filter))
	if err != nil {
		return tools.Envelope{}, err
	}

	return tools.OK(TaskList{Tasks: list, Count: len(list)}), nil
}

// maxTaskID - верхняя граница id, которую принимает complete_task.
const maxTaskID = math.MaxInt32

// CompleteTaskTool - отмечает задачу выполненной по id.
type CompleteTaskTool struct {
	manager *todo.Manager
}

func NewCompleteTaskTool(manager *todo.Manager) *CompleteTaskTool {
	return &CompleteTaskTool{manager: manager}
}

func (t *CompleteTaskTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "complete_task",
		Description: "Mark a task as completed by its ID",
		Parameters: objectSchema(map[string]any{
			"taskId": map[string]any{
				"type":        []string{"integer", "string"},
				"minimum":     1,
				"maximum":     maxTaskID,
				"pattern":     "^[0-9]+$",
				"description": "The ID of the task to complete",
			},
		}, "taskId"),
	}
}

func (t *CompleteTaskTool) Execute(ctx context.Context, args tools.Args) (tools.Envelope, error) {
	// Модель присылает id и числом, и строкой
	var in struct {
		TaskID float64 `json:"taskId"`
	}
	if err := args.Decode(&in); err != nil {
		return tools.Envelope{}, err
	}
	if in.TaskID < 1 || in.TaskID > maxTaskID || in.TaskID != math.Trunc(in.TaskID) {
		return tools.Envelope{}, fmt.Errorf("%w: taskId must be a positive integer", tools.ErrInvalidArguments)
	}
	id := int(in.TaskID)

	if err := ctx.Err(); err != nil {
		return tools.Envelope{}, err
	}
	task, err := t.manager.Complete(id)
	if errors.Is(err, todo.ErrTaskNotFound) {
		return tools.Fail("Task %d not found", id), nil
	}
	if err != nil {
		return tools.Envelope{}, err
	}

	return tools.OK(TaskResult{
		Task:    task,
		Message: fmt.Sprintf("Task %q completed", task.Title),
	}), nil
}
