package answer

const systemPrompt = `You are a helpful assistant answering questions about a WhatsApp chat export.
The user has retrieved the most relevant excerpts from the chat for each question.
Use the provided excerpts as your primary source. Be concise, direct, and conversational.
When quoting messages include the sender's name. If the excerpts don't contain enough information, say so honestly.`

const augmentedQuestion = "Relevant excerpts from the chat:\n\n%s\n\n---\n\nUser question: %s"

const excerptSeparator = "\n\n---\n"
