package generator

// Course is a course offering handed to the generator.
type Course struct {
	Code        string `json:"code" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Level       string `json:"level" validate:"required"`
	Department  string `json:"department"`
	NumStudents int    `json:"num_students" validate:"gte=0"`
	// Duration is expressed in minutes, as the generator expects.
	Duration int `json:"duration" validate:"gt=0"`
}

// Room is a bookable room with its seat capacity.
type Room struct {
	Name     string `json:"name" validate:"required"`
	Capacity int    `json:"capacity" validate:"gte=0"`
}

// Instructor lists the courses a lecturer can teach and the days they are available.
type Instructor struct {
	Name          string   `json:"name" validate:"required"`
	Department    string   `json:"department"`
	Courses       []string `json:"courses"`
	AvailableDays []string `json:"available_days,omitempty"`
}

// TimeFrame bounds the teaching day.
type TimeFrame struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

// Request is the generation payload.
type Request struct {
	Faculty     string       `json:"faculty"`
	Semester    string       `json:"semester"`
	Session     string       `json:"session"`
	Courses     []Course     `json:"courses"`
	Rooms       []Room       `json:"rooms"`
	Instructors []Instructor `json:"instructors"`
	TimeFrame   TimeFrame    `json:"time_frame"`
	Break       *string      `json:"break"`
}

// Entry is one booked slot in a generated schedule.
type Entry struct {
	CourseCode  string `mapstructure:"course_code"`
	CourseName  string `mapstructure:"course_name"`
	Level       string `mapstructure:"level"`
	Department  string `mapstructure:"department"`
	Instructor  string `mapstructure:"instructor"`
	Day         string `mapstructure:"day"`
	Time        string `mapstructure:"time"`
	Room        string `mapstructure:"room"`
	Duration    int    `mapstructure:"duration"`
	NumStudents int    `mapstructure:"num_students"`
}

// Result is the decoded generator response.
type Result struct {
	Schedule  map[string][]Entry `mapstructure:"schedule"`
	Score     float64            `mapstructure:"score"`
	Conflicts []string           `mapstructure:"conflicts"`
	Error     string             `mapstructure:"error"`
}
