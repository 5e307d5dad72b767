package ai

import (
	"context"
	"fmt"
)

// SuggestPost asks for a short post, about topic if one is given
func SuggestPost(ctx context.Context, g Generator, topic string) Result {
	if topic == "" {
		return g.Generate(ctx, "Write a short, engaging social media post (like a tweet) about a random interesting topic. Include relevant hashtags. Keep it under 280 characters.")
	}
	return g.Generate(ctx, fmt.Sprintf("Write a short, engaging social media post (like a tweet) about %q. Include relevant hashtags. Keep it under 280 characters.", topic))
}

// CompletePost asks for a completion of a partially written post
func CompletePost(ctx context.Context, g Generator, draft string) Result {
	return g.Generate(ctx, fmt.Sprintf("Complete the following social media post in a creative and engaging way: %q Keep it under 280 characters.", draft))
}

// WelcomeTopic is the topic of the post that greets a viewer whose feed is empty
func WelcomeTopic(personaHandle, viewerHandle string) string {
	return fmt.Sprintf("a welcome topic from @%s to the community, posted by @%s", personaHandle, viewerHandle)
}

// SuggestComment asks for a reply to a post written by the account with the given handle
func SuggestComment(ctx context.Context, g Generator, postContent, authorHandle string) Result {
	prompt := fmt.Sprintf(`You are a friendly and engaging social media user.
Given the following social media post by @%s:
%q

Write a short, relevant, and insightful comment for this post.
- If it's a question, try to provide a helpful answer or perspective.
- If it's an opinion, react to it respectfully, perhaps adding your own thought.
- If it's news or an announcement, show engagement.
- Keep the comment concise and natural, like a real user would write. Avoid generic replies.
- Include a relevant emoji if it fits the tone.
- Maximum 150 characters.`, authorHandle, postContent)
	return g.Generate(ctx, prompt)
}
