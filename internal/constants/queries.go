package constants

const (
	GetUserByID = `
	SELECT id, username, email, idnumber, firstname, lastname FROM users WHERE id = $1
	`

	CourseExists = `
	SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1)
	`
)

const (
	GetCourseByID = `
	SELECT id, fullname, shortname FROM courses WHERE id = $1
	`
)
