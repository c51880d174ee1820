package absence

import "fmt"

// messageTemplate is the registered DLT template text. The wording must not
// change without re-registering the template with the operator.
const messageTemplate = "Dear Parent, your child %s was absent on %s."

// ComposeMessage fills the absence template.
func ComposeMessage(studentName, date string) string {
	return fmt.Sprintf(messageTemplate, studentName, date)
}
