package gemini

import (
	"fmt"
	"strings"

	"github.com/pydaily/lessonbot/internal/domain/content"
)

// SystemInstruction frames every generation call.
const SystemInstruction = `You are "PyDaily", an enthusiastic, expert Python Tutor bot.

Your mission:
Teach Python from absolute zero to continuous expert mastery. There is no day limit.
Goal: Logically progress from basics to Data Structures & Algorithms, to advanced frameworks, to niche specializations.

Tone:
Friendly, Mentor-like, use emojis sparingly.`

const cardFooter = `
                 <div style="background-color:#eee; padding:10px; text-align:center; font-size:12px; border-radius:0 0 10px 10px;">
                    %s
                 </div>
               </div>`

// LessonPrompt builds the morning lesson prompt. history is the
// "Day d: topic; ..." digest of earlier lessons and may be empty.
func LessonPrompt(day int, history string) string {
	var direction string
	if strings.TrimSpace(history) != "" {
		direction = fmt.Sprintf("PREVIOUSLY COVERED TOPICS:\n%s\n\nINSTRUCTION: Based on the above path, choose the NEXT logical topic for Day %d.", history, day)
	} else {
		direction = fmt.Sprintf("INSTRUCTION: This is the very first lesson (Day %d). Start with the absolute basics (Installation/Intro).", day)
	}
	phase := content.PhaseFor(day)

	return fmt.Sprintf(`Generate the official PyDaily Newsletter for Day %[1]d.

%[2]s

CURRICULUM PHASE %[3]d: %[4]s

CONTENT REQUIREMENTS:
- Explain the topic clearly with analogies.
- Provide code examples (Dark Mode).
- Include a 'Daily Challenge'.

STRICT FORMATTING RULES:
1. INSERT THIS COMMENT AT THE VERY TOP (Crucial for tracking):
   <!-- TOPIC: [The Topic Name, e.g. Variables] -->

2. Output VALID HTML matching this structure:
               <div style="font-family: Helvetica, Arial, sans-serif; max-width:600px; margin:0 auto; border:1px solid #e0e0e0; border-radius:10px;">
                 <div style="background-color:#3776AB; color:white; padding:20px; text-align:center; border-radius:10px 10px 0 0;">
                   <h2>🐍 PyDaily: Day %[1]d</h2>
                 </div>
                 <div style="padding:20px; color:#333;">
                    [Content...]
                    <pre style="background-color:#2d2d2d; color:#f8f8f2; padding:15px; border-radius:5px; overflow-x:auto;"><code>print("Code")</code></pre>
                 </div>`+fmt.Sprintf(cardFooter, "Keep coding!")+`

3. NO MARKDOWN. RETURN ONLY THE HTML STRING.`, day, direction, phase.Number, phase.Goal)
}

// QuizPrompt builds the interview-style quiz prompt for a quiz day.
func QuizPrompt(day int, history string) string {
	if strings.TrimSpace(history) == "" {
		history = "Python fundamentals"
	}
	return fmt.Sprintf(`Generate a SENIOR-LEVEL INTERVIEW QUIZ for a Python Developer.

CONTEXT:
The student has completed Days 1-%[1]d.
Topics Covered So Far: %[2]s

QUIZ REQUIREMENTS:
- Total Questions: 15
- Composition:
    * 10 Multiple Choice Questions (Conceptual & Tricky)
    * 5 Code Snippet Analysis Questions ("What is the output?", "Find the bug")
- Difficulty: "Real-life Interview" (3 Years Experience expectation).
- Style: Tricky edge cases, memory management, mutable defaults, shallow copies, etc. (relevant to covered topics).

STRICT FORMATTING RULES:
1. Output VALID HTML.
2. Structure:
               <div style="font-family: Helvetica, Arial, sans-serif; max-width:600px; margin:0 auto; border:1px solid #e0e0e0; border-radius:10px;">
                 <div style="background-color:#4F46E5; color:white; padding:20px; text-align:center; border-radius:10px 10px 0 0;">
                   <h2>🎯 Interview Prep: Day %[1]d</h2>
                   <p>Level: 3 Years Experience</p>
                 </div>
                 <div style="padding:20px; color:#333;">
                    <div style="margin-bottom:20px; border-bottom:1px solid #eee; padding-bottom:15px;">
                        <strong>Q1. [Question Text]</strong><br>
                        A) Option ...<br>
                        B) Option ...<br>
                        <details style="margin-top:10px; color:#4F46E5; cursor:pointer;">
                            <summary>View Answer</summary>
                            <strong>Answer: B</strong><br>
                            <em>Explanation: [Deep technical explanation]</em>
                        </details>
                    </div>
                 </div>`+fmt.Sprintf(cardFooter, "Pass mark: 12/15. Good luck.")+`

3. NO MARKDOWN. RETURN ONLY THE HTML STRING.`, day, history)
}

// ReminderPrompt builds the evening check-in prompt.
func ReminderPrompt(day int) string {
	return fmt.Sprintf(`Generate a short, encouraging evening check-in email for Day %[1]d.

CONTENT GOALS:
- Ask if they finished the Challenge/Quiz?
- Provide a tiny, 1-sentence "Pro Tip" related to Day %[1]d's topic.
- Motivate them for tomorrow.

STRICT FORMATTING RULES:
1. Output VALID HTML matching this structure:
               <div style="font-family: Helvetica, Arial, sans-serif; max-width:600px; margin:0 auto; border:1px solid #e0e0e0; border-radius:10px;">
                 <div style="background-color:#2c3e50; color:white; padding:15px; text-align:center; border-radius:10px 10px 0 0;">
                   <h3>🌙 Nightly Check-in: Day %[1]d</h3>
                 </div>
                 <div style="padding:20px; color:#333; background-color:#f9f9f9;">
                    [Insert Content Here...]
                 </div>
                 <div style="text-align:center; padding:15px;">
                    <span style="background-color:#27ae60; color:white; padding:10px 20px; border-radius:5px;">I'm Ready for Day %[2]d 🚀</span>
                 </div>
               </div>

2. NO MARKDOWN. RETURN ONLY THE HTML STRING.`, day, day+1)
}

// MotivationPrompt builds the mid-day boost prompt.
func MotivationPrompt() string {
	return `Generate a short, powerful "Mid-Day Boost" email for coding students.

CONTENT:
- A punchy, famous quote about persistence, logic, or building things (e.g. Steve Jobs, Grace Hopper, Linus Torvalds).
- A brief 2-sentence commentary: "It's noon. You might be stuck. That's part of the process. Keep going."

STRICT FORMATTING:
1. HTML Card format like the daily lesson, but use an AMBER/ORANGE header (#F59E0B).
2. Title: "⚡ Mid-Day Boost"
3. NO MARKDOWN. RETURN ONLY THE HTML STRING.`
}
