package levels

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"smartbin/internal/fillregistry"
	"smartbin/pkg/ginx"
)

// Upload 接收标注图片、分类与角度
// POST /upload (multipart: image, class, angle, device_id)
func (h *LevelsHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		ginx.BadRequest(c, "image is required")
		return
	}
	class := c.PostForm("class")
	angleStr := c.PostForm("angle")
	if class == "" || angleStr == "" {
		ginx.BadRequest(c, "class and angle are required")
		return
	}
	angle, err := strconv.Atoi(angleStr)
	if err != nil {
		ginx.BadRequest(c, "angle must be an integer")
		return
	}

	f, err := file.Open()
	if err != nil {
		_ = c.Error(err)
		return
	}
	defer f.Close()

	rec, err := h.svc.Upload(c.Request.Context(), fillregistry.UploadInput{
		OriginalName: file.Filename,
		Body:         f,
		Size:         file.Size,
		ContentType:  file.Header.Get("Content-Type"),
		Class:        class,
		Angle:        angle,
		DeviceID:     c.PostForm("device_id"),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "uploaded", "filename": rec.StoredName})
}
