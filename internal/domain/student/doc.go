// Package student содержит доменную модель студента PyDaily.
//
// Пакет определяет:
//
//   - Сущность Student и закрытое перечисление Status
//   - Переходы статусов дневного цикла (MarkLessonSent, Advance) и
//     административные переопределения (Pause, Resume, ResetTo, SkipTo)
//   - Интерфейс хранилища Roster и частичное обновление Update
//
// # Жизненный цикл
//
//	pending --(утренний урок доставлен)--> lesson_sent
//	lesson_sent --(вечернее напоминание доставлено)--> pending, day+1
//
// Студент в статусе lesson_sent всегда уже получил урок своего дня.
// Статусы paused и complete выводят студента из рассылки.
//
// # Пример
//
//	s, err := NewStudent(NewStudentParams{
//	    ID:    uuid.NewString(),
//	    Email: "student@example.com",
//	    Name:  "Имя Студента",
//	})
//	_ = s.MarkLessonSent()
//	_ = roster.UpdateStudent(ctx, s.Email, s.Progress())
package student
