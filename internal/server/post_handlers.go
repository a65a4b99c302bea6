package server

import (
	"bloodconnect/internal/feed"
	"bloodconnect/internal/service"
	"bloodconnect/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// CreatePost handles POST /api/posts. It answers only after the post is stored.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var draft validation.PostDraft
	if err := c.BodyParser(&draft); err != nil {
		return badBody(c)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	post, err := s.postService.CreatePost(ctx, service.CreatePostInput{
		UID:   currentUID(c),
		Draft: draft,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetFeed handles GET /api/posts?tab=&type=&bloodGroup=&urgency=&q=
func (s *Server) GetFeed(c *fiber.Ctx) error {
	var filter feed.Filter
	if err := c.QueryParser(&filter); err != nil {
		return badBody(c)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := s.postService.Feed(ctx, service.FeedInput{
		UID:    currentUID(c),
		Filter: filter,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	post, err := s.postService.GetPost(ctx, c.Params("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// GetMyPosts handles GET /api/users/me/posts
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	var filter feed.Filter
	if err := c.QueryParser(&filter); err != nil {
		return badBody(c)
	}
	page := parsePagination(c, 20)

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := s.postService.MyPosts(ctx, service.MyPostsInput{
		UID:    currentUID(c),
		Limit:  page.Limit,
		Offset: page.Offset,
		Filter: filter,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}
