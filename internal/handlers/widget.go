package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"text/template"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/karthik-excrin/shootx-v2/internal/database"
	"github.com/karthik-excrin/shootx-v2/internal/models"
)

type WidgetStore interface {
	GetShopByDomain(ctx context.Context, domain string) (*models.Shop, error)
}

type WidgetHandler struct {
	store   WidgetStore
	baseURL string
	logger  *zap.Logger
}

// NewWidgetHandler builds the widget endpoint. baseURL is the public address
// of this service; the script runs on the storefront origin, so its API calls
// must be absolute.
func NewWidgetHandler(store WidgetStore, baseURL string, logger *zap.Logger) *WidgetHandler {
	return &WidgetHandler{
		store:   store,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// disabledScript is served for unknown or disabled shops so the storefront
// include never 404s.
const disabledScript = "// Try-on widget disabled\n"

// widgetTemplate is the storefront script. It injects a try-on button on
// product pages, submits the customer photo with the product image, then
// polls the status endpoint every 2 seconds for up to 60 attempts. A network
// error during polling aborts the loop and surfaces a retry prompt.
var widgetTemplate = template.Must(template.New("widget").Parse(`(function() {
  'use strict';

  var CONFIG = {
    apiBase: {{printf "%q" .APIBase}},
    shopDomain: {{printf "%q" .ShopDomain}},
    buttonText: {{printf "%q" .ButtonText}},
    buttonColor: {{printf "%q" .ButtonColor}},
    popupTitle: {{printf "%q" .PopupTitle}},
    maxFileSize: {{.MaxFileSize}},
    allowedFileTypes: {{printf "%q" .AllowedFileTypes}}.split(','),
    pollInterval: 2000,
    maxPollAttempts: 60
  };

  function productInfo() {
    var meta = window.ShopifyAnalytics && window.ShopifyAnalytics.meta;
    var product = meta && meta.product;
    if (!product) return null;
    var image = document.querySelector('meta[property="og:image"]');
    return {
      id: String(product.id),
      title: product.variants && product.variants[0] ? product.variants[0].name : document.title,
      image: image ? image.getAttribute('content') : ''
    };
  }

  function submitTryOn(customerImage, onDone, onError) {
    var product = productInfo();
    if (!product) {
      onError(new Error('product not found on page'));
      return;
    }
    var form = new FormData();
    form.append('shop', CONFIG.shopDomain);
    form.append('productId', product.id);
    form.append('productTitle', product.title);
    form.append('productImage', product.image);
    form.append('customerImage', customerImage);

    fetch(CONFIG.apiBase + '/api/tryon', { method: 'POST', body: form })
      .then(function(res) { return res.json(); })
      .then(function(result) {
        if (result.success) {
          pollForResult(result.requestId, onDone, onError);
        } else {
          onError(new Error(result.error || 'submission failed'));
        }
      })
      .catch(onError);
  }

  function pollForResult(requestId, onDone, onError) {
    var attempts = 0;

    var poll = function() {
      fetch(CONFIG.apiBase + '/api/tryon-status?requestId=' + encodeURIComponent(requestId))
        .then(function(res) { return res.json(); })
        .then(function(status) {
          if (status.status === 'completed' && status.resultImage) {
            onDone(status.resultImage);
          } else if (status.status === 'failed') {
            onError(new Error('try-on generation failed'));
          } else if (attempts < CONFIG.maxPollAttempts) {
            attempts++;
            setTimeout(poll, CONFIG.pollInterval);
          } else {
            onError(new Error('try-on generation timed out'));
          }
        })
        .catch(onError);
    };

    poll();
  }

  function openPicker() {
    var input = document.createElement('input');
    input.type = 'file';
    input.accept = CONFIG.allowedFileTypes.join(',');
    input.onchange = function() {
      var file = input.files[0];
      if (!file) return;
      if (file.size > CONFIG.maxFileSize) {
        alert('File is too large.');
        return;
      }
      var reader = new FileReader();
      reader.onload = function() {
        submitTryOn(reader.result, showResult, function(err) {
          console.error('Try-on error:', err);
          alert('Failed to generate try-on. Please try again.');
        });
      };
      reader.readAsDataURL(file);
    };
    input.click();
  }

  function showResult(resultImageUrl) {
    var overlay = document.createElement('div');
    overlay.style.cssText = 'position:fixed;top:0;left:0;width:100%;height:100%;background:rgba(0,0,0,0.8);z-index:10000;display:flex;align-items:center;justify-content:center;';
    var img = document.createElement('img');
    img.src = resultImageUrl;
    img.style.cssText = 'max-width:90%;max-height:90%;border-radius:8px;';
    overlay.appendChild(img);
    overlay.onclick = function() { overlay.remove(); };
    document.body.appendChild(overlay);
  }

  function injectButton() {
    var selectors = [
      '.product-form__buttons',
      '.product__buttons',
      '.product-single__add-to-cart',
      '.product-form__cart',
      '[data-add-to-cart-form]'
    ];
    var container = null;
    for (var i = 0; i < selectors.length; i++) {
      container = document.querySelector(selectors[i]);
      if (container) break;
    }
    if (!container) return;

    var button = document.createElement('button');
    button.type = 'button';
    button.textContent = CONFIG.buttonText;
    button.style.cssText = 'background-color:' + CONFIG.buttonColor + ';color:#fff;border:none;padding:12px 24px;border-radius:6px;font-weight:600;cursor:pointer;margin:10px 0;';
    button.onclick = openPicker;
    container.appendChild(button);
  }

  if (document.readyState === 'loading') {
    document.addEventListener('DOMContentLoaded', injectButton);
  } else {
    injectButton();
  }
})();
`))

type widgetConfig struct {
	APIBase          string
	ShopDomain       string
	ButtonText       string
	ButtonColor      string
	PopupTitle       string
	MaxFileSize      int64
	AllowedFileTypes string
}

// GetWidget serves the per-shop storefront script. The script is cacheable
// for a short window so settings changes propagate without hammering the db.
func (h *WidgetHandler) GetWidget(c *gin.Context) {
	domain := c.Query("shop")
	if domain == "" {
		c.String(http.StatusBadRequest, "Shop parameter is required")
		return
	}

	c.Header("Content-Type", "application/javascript")
	c.Header("Cache-Control", "public, max-age=300")

	shop, err := h.store.GetShopByDomain(c.Request.Context(), domain)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			h.logger.Error("failed to load shop for widget", zap.String("shop", domain), zap.Error(err))
		}
		c.String(http.StatusOK, disabledScript)
		return
	}
	if !shop.TryOnEnabled {
		c.String(http.StatusOK, disabledScript)
		return
	}

	var buf bytes.Buffer
	err = widgetTemplate.Execute(&buf, widgetConfig{
		APIBase:          h.baseURL,
		ShopDomain:       shop.ShopDomain,
		ButtonText:       shop.ButtonText,
		ButtonColor:      shop.ButtonColor,
		PopupTitle:       shop.PopupTitle,
		MaxFileSize:      shop.MaxFileSize,
		AllowedFileTypes: shop.AllowedFileTypes,
	})
	if err != nil {
		h.logger.Error("failed to render widget", zap.String("shop", domain), zap.Error(err))
		c.String(http.StatusInternalServerError, "// widget unavailable\n")
		return
	}

	c.String(http.StatusOK, buf.String())
}
