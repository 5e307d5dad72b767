package nhost

// Operations mirror the backend's Hasura schema: posts, comments and post_likes tables with
// users exposed through the auth schema.

const userFields = `
	id
	displayName
	avatarUrl
	metadata
`

const postFields = `
	id
	content
	image_url
	created_at
	is_bot_post
	user {` + userFields + `}
	comments_aggregate {
		aggregate {
			count
		}
	}
	comments(order_by: { created_at: asc }) {
		id
		content
		created_at
		is_bot_comment
		user {` + userFields + `}
	}
	likes_aggregate {
		aggregate {
			count
		}
	}
`

const getPostsOperation = `
query GetPosts {
	posts(order_by: { created_at: desc }) {` + postFields + `}
}
`

const getPostByIDOperation = `
query GetPostById($postId: uuid!) {
	posts_by_pk(id: $postId) {` + postFields + `}
}
`

const getUserLikesForPostsOperation = `
query GetUserLikesForPosts($userId: uuid!, $postIds: [uuid!]) {
	post_likes(where: { user_id: { _eq: $userId }, post_id: { _in: $postIds } }) {
		post_id
	}
}
`

const addPostOperation = `
mutation AddPost($userId: uuid!, $content: String!, $imageUrl: String, $isBotPost: Boolean) {
	insert_posts_one(object: { user_id: $userId, content: $content, image_url: $imageUrl, is_bot_post: $isBotPost }) {
		id
	}
}
`

const addCommentOperation = `
mutation AddComment($postId: uuid!, $userId: uuid!, $content: String!, $isBotComment: Boolean) {
	insert_comments_one(object: { post_id: $postId, user_id: $userId, content: $content, is_bot_comment: $isBotComment }) {
		id
		created_at
		content
		is_bot_comment
		user {` + userFields + `}
	}
}
`

const likePostOperation = `
mutation LikePost($postId: uuid!, $userId: uuid!) {
	insert_post_likes_one(object: { post_id: $postId, user_id: $userId }) {
		post_id
		user_id
	}
}
`

const unlikePostOperation = `
mutation UnlikePost($postId: uuid!, $userId: uuid!) {
	delete_post_likes_by_pk(post_id: $postId, user_id: $userId) {
		post_id
		user_id
	}
}
`
