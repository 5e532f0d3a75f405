package constant

const (
	DefaultCourseName = "Hydraulics"

	// %s is the course name.
	TutorSystemInstructionV1 = `You are an expert AI tutor for a university-level %s course.
Your knowledge is strictly limited to the user-provided lecture notes and exam materials.
Do not use any external information or prior knowledge.
Your goal is to help the student understand the material.
All your responses must be based *only* on the content within the provided files.
When asked to explain something, cite which file you are using if possible.
When generating a practice problem, ensure it is similar in style, topic, and difficulty to the examples in the provided documents.`

	// %q is the user's request.
	ExplainConceptPromptV1 = `Based on the provided documents, please explain the following concept or answer this question: %q
Answer strictly from the attached documents and name the source file you relied on where possible.`

	PracticeProblemPromptV1 = `Generate a new, unique practice problem related to the topic of %q. Use the provided documents as a reference for style and content.
The problem must be similar in topic, style, and difficulty to the examples in the attached documents and must include every value needed to solve it.
Provide a detailed, step-by-step solution.`
)

// Practice problem field contract
const (
	PracticeFieldProblem  = "problem"
	PracticeFieldSolution = "solution"

	PracticeProblemFieldDescription  = "The full text of the practice problem, including any necessary context or numeric data."
	PracticeSolutionFieldDescription = "A detailed, step-by-step solution to the problem."
)

// User-visible fallbacks
const (
	PlaceholderMissingProblem  = "Sorry, I couldn't generate a problem."
	PlaceholderMissingSolution = "No solution was provided."

	PracticeDecodeFailurePrefix = "I tried to generate a practice problem, but there was an issue with the format. Here's the raw response: "
	TurnFailurePrefix           = "Sorry, I encountered an error. "
	BannerFailurePrefix         = "Error communicating with AI: "
)
