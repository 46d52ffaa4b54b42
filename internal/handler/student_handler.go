package handler

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cseasy-api/internal/dto"
	"github.com/noah-isme/cseasy-api/internal/middleware"
	"github.com/noah-isme/cseasy-api/internal/service"
	"github.com/noah-isme/cseasy-api/internal/utils"
)

// StudentHandler serves the authenticated student's record, tasks and todos.
type StudentHandler struct {
	students  service.StudentService
	gateway   service.MutationGateway
	assistant service.AssistantService
	calendar  service.CalendarService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(students service.StudentService, gateway service.MutationGateway, assistant service.AssistantService, calendar service.CalendarService, validate *validator.Validate, logger zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		students:  students,
		gateway:   gateway,
		assistant: assistant,
		calendar:  calendar,
		validator: validate,
		logger:    logger.With().Str("component", "student_handler").Logger(),
	}
}

// Register wires the student routes. The group is expected to require a session.
func (h *StudentHandler) Register(router fiber.Router) {
	router.Get("", h.profile)
	router.Get("/courses", h.courses)
	router.Get("/courses/:courseId", h.courseDetail)
	router.Get("/tasks", h.tasks)
	router.Put("/tasks/:taskId", h.setTaskCompletion)
	router.Post("/tasks/:taskId/toggle", h.toggleTask)
	router.Get("/todos", h.todos)
	router.Post("/todos", h.addTodo)
	router.Post("/todos/:todoId/toggle", h.toggleTodo)
	router.Post("/todos/:todoId/estimate", h.estimateTodo)
	router.Get("/announcements", h.announcements)
	router.Get("/calendar.ics", h.calendarFeed)
}

func (h *StudentHandler) currentStudent(c *fiber.Ctx) (string, bool) {
	studentID := middleware.StudentIDFromContext(c)
	return studentID, studentID != ""
}

func (h *StudentHandler) profile(c *fiber.Ctx) error {
	studentID, ok := h.currentStudent(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "missing student session")
	}
	student, err := h.students.GetStudent(requestContext(c), studentID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load student")
	}
	return utils.SendSuccess(c, "student retrieved", student)
}

func (h *StudentHandler) courses(c *fiber.Ctx) error {
	studentID, ok := h.currentStudent(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "missing student session")
	}
	courses, err := h.students.ListCourses(requestContext(c), studentID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load courses")
	}
	return utils.SendSuccess(c, "courses retrieved", courses)
}

func (h *StudentHandler) courseDetail(c *fiber.Ctx) error {
	studentID, ok := h.currentStudent(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "missing student session")
	}
	detail, err := h.students.GetCourseDetail(requestContext(c), studentID, c.Params("courseId"))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load course")
	}
	return utils.SendSuccess(c, "course retrieved", detail)
}

func (h *StudentHandler) tasks(c *fiber.Ctx) error {
	studentID, ok := h.currentStudent(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "missing student session")
	}
	tasks, err := h.students.ListTasks(requestContext(c), studentID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load tasks")
	}
	return utils.SendSuccess(c, "tasks retrieved", tasks)
}

func (h *StudentHandler) setTaskCompletion(c *fiber.Ctx) error {
	studentID, ok := h.currentStudent(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "missing student session")
	}

	var payload dto.TaskCompletionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "completed is required", validationDetails(err))
	}

	taskID := c.Params("taskId")
	state, err := h.gateway.SetTaskCompletion(requestContext(c), taskID, *payload.Completed, studentID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to update task")
	}
	return utils.SendSuccess(c, "task updated", dto.TaskStateResponse{TaskID: taskID, Completed: state.Completed, CompletedAt: state.CompletedAt})
}

func (h *StudentHandler) toggleTask(c *fiber.Ctx) error {
	studentID, ok := h.currentStudent(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "missing student session")
	}

	taskID := c.Params("taskId")
	state, err := h.gateway.ToggleTaskCompletion(requestContext(c), taskID, studentID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to toggle task")
	}
	return utils.SendSuccess(c, "task updated", dto.TaskStateResponse{TaskID: taskID, Completed: state.Completed, CompletedAt: state.CompletedAt})
}

func (h *StudentHandler) todos(c *fiber.Ctx) error {
	studentID, ok := h.currentStudent(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "missing student session")
	}
	todos, err := h.students.ListTodos(requestContext(c), studentID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load todos")
	}
	return utils.SendSuccess(c, "todos retrieved", todos)
}

func (h *StudentHandler) addTodo(c *fiber.Ctx) error {
	studentID, ok := h.currentStudent(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "missing student session")
	}

	var payload dto.TodoCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, service.ErrTodoTextRequired.Error(), validationDetails(err))
	}

	todo, err := h.gateway.AddTodo(requestContext(c), payload.Text, studentID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to add todo")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "todo added", todo)
}

func (h *StudentHandler) toggleTodo(c *fiber.Ctx) error {
	studentID, ok := h.currentStudent(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "missing student session")
	}

	todo, found, err := h.gateway.ToggleTodo(requestContext(c), c.Params("todoId"), studentID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to toggle todo")
	}
	if !found {
		return utils.OK(c, nil, "todo unchanged", fiber.Map{"found": false})
	}
	return utils.OK(c, todo, "todo updated", fiber.Map{"found": true})
}

func (h *StudentHandler) estimateTodo(c *fiber.Ctx) error {
	studentID, ok := h.currentStudent(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "missing student session")
	}

	todo, err := h.assistant.EstimateTodo(requestContext(c), c.Params("todoId"), studentID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "unable to estimate")
	}
	return utils.SendSuccess(c, "todo estimated", todo)
}

func (h *StudentHandler) announcements(c *fiber.Ctx) error {
	studentID, ok := h.currentStudent(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "missing student session")
	}
	items, err := h.students.ListAnnouncements(requestContext(c), studentID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load announcements")
	}
	return utils.SendSuccess(c, "announcements retrieved", items)
}

func (h *StudentHandler) calendarFeed(c *fiber.Ctx) error {
	studentID, ok := h.currentStudent(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "missing student session")
	}
	feed, err := h.calendar.Export(requestContext(c), studentID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to export calendar")
	}

	c.Set(fiber.HeaderContentType, "text/calendar; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+strings.ToLower(studentID)+`-deadlines.ics"`)
	return c.SendString(feed)
}
