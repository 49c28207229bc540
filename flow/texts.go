package flow

// User-facing copy. Kept in one place so prompts and notifications stay
// consistent between the renderer and the step handlers.
const (
	textMenuTitle = "Привет! Я помогу составить объявление о пропаже или находке.\nВыберите, что случилось:"
	textMenuLost  = "😟 Я потерял вещь"
	textMenuFound = "🙌 Я нашёл вещь"

	textUseMenu        = "Не понял вас. Выберите действие через меню или напишите «потерял» / «нашёл»."
	textCancelled      = "Диалог отменён. Черновик удалён."
	textNotImplemented = "Этот шаг пока не поддерживает такой ввод. Отправьте /cancel, чтобы начать заново."
	textUnknownAction  = "Неизвестное действие"
	textChooseFlow     = "Сначала выберите, что случилось"
	textWrongFlow      = "Эта кнопка из другого диалога. Отправьте /cancel и начните заново"
	textNoHandler      = "Для этого шага нет такого действия"
	textEventError     = "Что-то пошло не так. Попробуйте ещё раз чуть позже."

	textBannerLost  = "Начинаем объявление о пропаже."
	textBannerFound = "Начинаем объявление о находке."

	textCategoryPromptLost  = "Что вы потеряли? Выберите категорию:"
	textCategoryPromptFound = "Что вы нашли? Выберите категорию:"
	textUnknownCategory     = "Такой категории нет, выберите кнопкой"

	textAttributesPromptLost  = "Опишите вещь: цвет, приметы, содержимое. Чем подробнее, тем проще найти совпадение."
	textAttributesPromptFound = "Опишите находку: цвет, приметы, состояние. Чем подробнее, тем проще найти владельца."
	textAttributesTooShort    = "Слишком коротко. Напишите хотя бы несколько слов (минимум 5 символов)."

	textPhotoStub = "Фото пока не поддерживаются, пропускаем этот шаг."

	textLocationPromptLost  = "Где вы могли потерять вещь? Пришлите геоточку или опишите место текстом."
	textLocationPromptFound = "Где вы нашли вещь? Пришлите геоточку или опишите место текстом."
	textLocationMissing     = "Нужно указать место: пришлите геоточку или напишите адрес/ориентир."

	textSecretsPrompt = "Назовите до трёх примет, известных только владельцу (через запятую или с новой строки).\nЕсли примет нет — отправьте /skip."

	textSummaryTitle      = "Проверьте объявление:"
	textSummaryDetails    = "Описание"
	textSummaryLocation   = "Место"
	textSummaryGeo        = "геоточка приложена"
	textSummarySecrets    = "Секретные приметы"
	textSummaryNoSecrets  = "не указаны"
	textSummaryTypeLost   = "Пропажа"
	textSummaryTypeFound  = "Находка"
	textConfirmPublishBtn = "✅ Опубликовать"
	textConfirmEditBtn    = "✏️ Изменить описание"
	textConfirmCancelBtn  = "❌ Отменить"

	textPublishStub = "Публикация объявлений скоро заработает. Черновик закрыт."
	textMenuBtnBack = "🏠 В меню"
)
